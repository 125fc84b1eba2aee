package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deploywatch/scanner-qualys/pkg/job"
)

type Enqueuer struct {
	mock.Mock
}

func NewEnqueuer() *Enqueuer {
	return &Enqueuer{}
}

func (e *Enqueuer) Enqueue(ctx context.Context, request job.ScanRequest) (job.Job, error) {
	args := e.Called(ctx, request)
	return args.Get(0).(job.Job), args.Error(1)
}
