package retrieval

import "errors"

var (
	// ErrRetrievalUnavailable indicates both the similarity and recency paths failed.
	ErrRetrievalUnavailable = errors.New("candidate retrieval unavailable")

	// ErrBackendRequired indicates no similarity backend was provided.
	ErrBackendRequired = errors.New("similarity backend is required")

	// ErrSourceRequired indicates no candidate source was provided.
	ErrSourceRequired = errors.New("candidate source is required")
)
