// Package openai embeds profile and candidate text through any service that
// speaks the OpenAI embeddings API.
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434/v1"),
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	))
//	vector, err := provider.Embedder().EmbedText(ctx, profile.Text())
//
// Requests are split into chunks of Config.BatchSize texts. The provider
// rejects empty vectors and vectors whose length differs from the first one
// it received.
package openai
