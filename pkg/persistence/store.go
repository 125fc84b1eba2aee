package persistence

import (
	"context"

	"github.com/deploywatch/scanner-qualys/pkg/report"
)

// Store persists scan outcomes as full payload objects plus denormalized
// metadata records indexed by partition key for fast recency lookups.
//
// SaveScanResult writes the payload object first and the metadata record
// second. The two writes are not a transaction: if the second fails the
// object is orphaned but still reachable by listing, which is acceptable.
//
// SaveError is a best effort diagnostic side channel. Implementations log
// failures instead of returning them.
type Store interface {
	SaveScanResult(ctx context.Context, outcome report.ScanOutcome) error
	SaveError(ctx context.Context, record report.ErrorRecord)
	ListRecords(ctx context.Context, partitionKey string) ([]report.ScanRecord, error)
	GetPayload(ctx context.Context, objectPath string) ([]byte, error)
}
