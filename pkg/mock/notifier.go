package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deploywatch/scanner-qualys/pkg/report"
)

type Notifier struct {
	mock.Mock
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(ctx context.Context, outcome report.ScanOutcome) {
	n.Called(ctx, outcome)
}
