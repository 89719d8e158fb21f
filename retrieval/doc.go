// Package retrieval builds the candidate pool for a discovery request.
//
// With a query vector the Retriever asks a SimilarityBackend for an
// over-fetched pool of min(MaxPool, limit*OverfetchFactor()) IDs, then loads
// their attributes. Without a vector, or when the backend fails or times out,
// it falls back to the newest candidates. Only the failure of both paths is
// returned as ErrRetrievalUnavailable.
package retrieval
