// Package pgvector stores candidates in PostgreSQL and answers similarity
// queries through a pgvector HNSW index on cosine distance.
//
// The index is approximate, so Store reports a small overfetch factor and
// leaves exact ordering to the scorer.
package pgvector
