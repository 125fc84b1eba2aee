package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deploywatch/scanner-qualys/pkg/report"
)

type Store struct {
	mock.Mock
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SaveScanResult(ctx context.Context, outcome report.ScanOutcome) error {
	args := s.Called(ctx, outcome)
	return args.Error(0)
}

func (s *Store) SaveError(ctx context.Context, record report.ErrorRecord) {
	s.Called(ctx, record)
}

func (s *Store) ListRecords(ctx context.Context, partitionKey string) ([]report.ScanRecord, error) {
	args := s.Called(ctx, partitionKey)
	return args.Get(0).([]report.ScanRecord), args.Error(1)
}

func (s *Store) GetPayload(ctx context.Context, objectPath string) ([]byte, error) {
	args := s.Called(ctx, objectPath)
	return args.Get(0).([]byte), args.Error(1)
}
