package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/qscanner"
)

type Wrapper struct {
	mock.Mock
}

func NewWrapper() *Wrapper {
	return &Wrapper{}
}

func (w *Wrapper) Scan(ctx context.Context, ref image.Reference, tags map[string]string) (qscanner.ScanOutput, error) {
	args := w.Called(ctx, ref, tags)
	return args.Get(0).(qscanner.ScanOutput), args.Error(1)
}

func (w *Wrapper) Version() string {
	args := w.Called()
	return args.String(0)
}
