package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/metrics"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
)

// Cache answers whether an image was scanned within the dedup window. It is
// advisory only: there is no lock around check-then-scan, so two concurrent
// invocations may both miss and both scan. That wastes one scan; a false
// positive would silently skip a needed scan, which is why every failure
// path below reports "not recently scanned".
type Cache interface {
	IsRecentlyScanned(ctx context.Context, ref image.Reference, window time.Duration) bool
}

type cache struct {
	store persistence.Store
	clock Clock
}

func NewCache(store persistence.Store, clock Clock) Cache {
	return &cache{
		store: store,
		clock: clock,
	}
}

func (c *cache) IsRecentlyScanned(ctx context.Context, ref image.Reference, window time.Duration) bool {
	partitionKey := ref.PartitionKey()

	// The metadata index cannot be trusted to filter by timestamp server
	// side, so fetch the partition and filter here.
	records, err := c.store.ListRecords(ctx, partitionKey)
	if err != nil {
		slog.Warn("Error checking recent scans, assuming not recently scanned",
			slog.String("partition_key", partitionKey),
			slog.String("err", err.Error()),
		)
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return false
	}

	cutoff := c.clock.Now().UTC().Add(-window)
	for _, record := range records {
		ts, err := time.Parse(time.RFC3339, record.Timestamp)
		if err != nil {
			slog.Warn("Skipping scan record with malformed timestamp",
				slog.String("partition_key", partitionKey),
				slog.String("scan_id", record.ScanID),
				slog.String("timestamp", record.Timestamp),
			)
			continue
		}

		if ts.After(cutoff) {
			slog.Debug("Found recent scan",
				slog.String("partition_key", partitionKey),
				slog.String("scan_id", record.ScanID),
			)
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return true
		}
	}

	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	return false
}
