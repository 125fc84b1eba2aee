package qscanner

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

func TestDefaultClassify(t *testing.T) {
	testCases := []struct {
		err      error
		expected ErrorKind
	}{
		{err: xerrors.New("dial tcp: connection refused"), expected: Retryable},
		{err: xerrors.New("read: network is unreachable"), expected: Retryable},
		{err: xerrors.New("registry responded with 429 Too Many Requests"), expected: Retryable},
		{err: xerrors.New("502 Bad Gateway"), expected: Retryable},
		{err: xerrors.New("503 Service Unavailable"), expected: Retryable},
		{err: xerrors.New("504 Gateway Timeout"), expected: Retryable},
		{err: xerrors.New("temporary failure in name resolution"), expected: Retryable},
		{err: xerrors.New("Rate limit exceeded"), expected: Retryable},
		{err: xerrors.New("i/o timeout talking to registry"), expected: Retryable},
		{err: xerrors.New("invalid image manifest"), expected: Fatal},
		{err: xerrors.New("unauthorized: authentication required"), expected: Fatal},
		{err: fmt.Errorf("qscanner timed out after 30m0s: %w", context.DeadlineExceeded), expected: Timeout},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.expected, DefaultClassify(tc.err))
		})
	}
}

func TestScanError_Error(t *testing.T) {
	err := &ScanError{
		Kind:     Retryable,
		ImageRef: "docker.io/library/nginx:latest",
		Attempts: 4,
		Err:      xerrors.New("connection reset by peer"),
	}
	assert.Equal(t, "scanning docker.io/library/nginx:latest failed (retryable, 4 attempt(s)): connection reset by peer", err.Error())
}
