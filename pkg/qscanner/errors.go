package qscanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags a scan failure with the retry policy that applies to it.
type ErrorKind int

const (
	// Retryable failures are likely to succeed on another attempt.
	Retryable ErrorKind = iota
	// Fatal failures fail the scan immediately.
	Fatal
	// Timeout means the child process exceeded its wall clock budget. It is
	// never retried: a second attempt against the same budget is unlikely to
	// finish and would double the cost of an already exhausted scan.
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// ScanError is returned by the wrapper when all attempts are exhausted or a
// non retryable failure occurs.
type ScanError struct {
	Kind     ErrorKind
	ImageRef string
	Attempts int
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s failed (%s, %d attempt(s)): %v", e.ImageRef, e.Kind, e.Attempts, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Classifier decides the retry policy for a single failed attempt.
type Classifier func(err error) ErrorKind

// Markers of failures worth retrying. Substring matching against error text
// is fragile but it is all the CLI gives us; keeping the classifier a plain
// function makes the policy testable and replaceable on its own.
var transientMarkers = []string{
	"connection",
	"timeout",
	"network",
	"temporary",
	"rate limit",
	"429",
	"502",
	"503",
	"504",
}

// DefaultClassify treats a deadline hit as Timeout, known transient markers
// as Retryable and everything else as Fatal.
func DefaultClassify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Retryable
		}
	}

	return Fatal
}
