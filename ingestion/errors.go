package ingestion

import "errors"

var (
	// ErrCandidateRepositoryRequired is returned when a candidate repository is not provided.
	ErrCandidateRepositoryRequired = errors.New("candidate repository required")

	// ErrEncoderRequired is returned when a candidate encoder is not provided.
	ErrEncoderRequired = errors.New("candidate encoder required")

	// ErrPipelineReleased is returned when work is submitted after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
