package search

import "errors"

var (
	// ErrInvalidSpace marks a search space that cannot be searched (empty, unnamed,
	// duplicate, non-finite or non-positive-width dimensions).
	ErrInvalidSpace = errors.New("invalid search space")
	// ErrInvalidSample marks a sample with the wrong dimension or non-finite coordinates.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrSampleOutOfBounds marks a sample outside the declared search space.
	ErrSampleOutOfBounds = errors.New("sample outside search space")
	// ErrObjectiveFailed marks an objective call that returned an error or a non-finite value.
	// It is fatal for a run.
	ErrObjectiveFailed = errors.New("objective evaluation failed")
	// ErrHistoryOutOfOrder marks an attempt to append a history row out of sequence.
	ErrHistoryOutOfOrder = errors.New("history row out of order")
)
