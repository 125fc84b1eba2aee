package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deploywatch/scanner-qualys/pkg/report"
)

type Controller struct {
	mock.Mock
}

func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) ProcessImages(ctx context.Context, images []string, tags map[string]string) {
	c.Called(ctx, images, tags)
}

func (c *Controller) ScanImage(ctx context.Context, imageString string, tags map[string]string) (*report.ScanOutcome, error) {
	args := c.Called(ctx, imageString, tags)
	return args.Get(0).(*report.ScanOutcome), args.Error(1)
}
