// Package reembed regenerates candidate vectors with the configured
// embedding model. It walks every stored candidate in ID order, embeds
// each batch with retries and reports progress as it goes.
//
// Run it after switching embedding models; vectors from different models
// are not comparable, so a partial run leaves similarity scores mixed.
package reembed
