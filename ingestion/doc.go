// Package ingestion loads candidates into storage and embeds them.
//
// The Pipeline stores candidates synchronously, then embeds the ones that
// arrived without a vector on a worker pool. Embedding failures are logged
// and leave the candidate without a vector; discovery treats such candidates
// with the missing-similarity default until a re-embed run fills them in.
package ingestion
