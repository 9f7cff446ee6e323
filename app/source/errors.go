package source

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FetchFailure       FailureKind = "FetchFailure"
	ExtractionFailure  FailureKind = "ExtractionFailure"
	ProviderFailure    FailureKind = "ProviderFailure"
	PersistenceFailure FailureKind = "PersistenceFailure"
	Timeout            FailureKind = "Timeout"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoCandidates    = errors.New("no candidates extracted")
)

// Failure is a classified pipeline error. Provider and URL are filled in
// as far as they are known at the point of failure.
type Failure struct {
	Kind     FailureKind
	Provider string
	URL      string
	Err      error
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Provider != "" {
		msg += " [" + f.Provider + "]"
	}
	if f.URL != "" {
		msg += " " + f.URL
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf classifies err, defaulting to ProviderFailure for unclassified
// errors.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ProviderFailure
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, e.Status)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == 429 || e.Code >= 500
}

// Stats is what an adapter reports besides the candidates it emitted.
type Stats struct {
	Emitted      int
	ItemFailures int
	Failures     []*Failure
}

// Fail records a per-item failure and keeps going.
func (s *Stats) Fail(f *Failure) {
	s.ItemFailures++
	s.Failures = append(s.Failures, f)
}
