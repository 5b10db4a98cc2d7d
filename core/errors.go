package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/gnss-acquisition/model"
)

var (
	// ErrInsufficientSamples means the buffer cannot supply four windows.
	ErrInsufficientSamples = errors.New("insufficient samples for acquisition windows")
	// ErrInvalidConfiguration aliases the model sentinel so callers can match
	// either package.
	ErrInvalidConfiguration = model.ErrInvalidConfiguration
	// ErrNumericDegenerate marks a candidate whose correlation produced
	// non-finite values or an undefined peak ratio.
	ErrNumericDegenerate = errors.New("numerically degenerate correlation")
	// ErrReplicaUnavailable wraps replica provider failures.
	ErrReplicaUnavailable = errors.New("replica code unavailable")
)

// CandidateError ties a candidate-local failure to its satellite identifier.
type CandidateError struct {
	ID  int
	Err error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("satellite %d: %v", e.ID, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// IsCandidateLocal reports whether err only invalidates a single candidate.
func IsCandidateLocal(err error) bool {
	return errors.Is(err, ErrNumericDegenerate) || errors.Is(err, ErrReplicaUnavailable)
}
