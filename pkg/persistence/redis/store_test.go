package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

func newTestStore(t *testing.T) (*store, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := NewStore(etc.RedisStore{Namespace: "test:store"}, rdb)
	return s.(*store), rdb
}

func testOutcome(scanID string) report.ScanOutcome {
	ref := image.Parse("myregistry.azurecr.io/app:v1")
	return report.ScanOutcome{
		ScanID: scanID,
		Status: report.StatusCompleted,
		Image:  ref,
		Vulnerabilities: report.VulnerabilitySummary{
			Critical: 1,
			High:     2,
			Total:    3,
			Details: []report.Finding{
				{CVE: "CVE-2024-0001", Severity: report.SevCritical},
			},
		},
		Compliance: report.ComplianceSummary{Passed: 4, Failed: 1, Total: 6},
		Metadata: report.Metadata{
			Registry:      ref.Registry,
			Repository:    ref.Repository,
			Tag:           ref.Tag,
			ScanTimestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Scanner:       "qscanner",
		},
	}
}

func TestStore_SaveScanResult(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	outcome := testOutcome("scan-1")
	require.NoError(t, s.SaveScanResult(ctx, outcome))

	records, err := s.ListRecords(ctx, outcome.Image.PartitionKey())
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "scan-1", record.ScanID)
	assert.Equal(t, "myregistry.azurecr.io_app_v1", record.PartitionKey)
	assert.Equal(t, "myregistry.azurecr.io/app:v1", record.Image)
	assert.Equal(t, report.StatusCompleted, record.Status)
	assert.Equal(t, 1, record.VulnCritical)
	assert.Equal(t, 3, record.VulnTotal)
	assert.Equal(t, 4, record.CompliancePassed)
	assert.Equal(t, "myregistry.azurecr.io_app_v1/scan-1.json", record.ObjectPath)
	assert.Equal(t, "2025-06-01T12:00:00Z", record.Timestamp)

	payload, err := s.GetPayload(ctx, record.ObjectPath)
	require.NoError(t, err)

	var stored report.ScanOutcome
	require.NoError(t, json.Unmarshal(payload, &stored))
	assert.Equal(t, outcome, stored)
}

func TestStore_SaveScanResult_RescanAddsRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveScanResult(ctx, testOutcome("scan-1")))
	require.NoError(t, s.SaveScanResult(ctx, testOutcome("scan-2")))
	// Upsert keyed by scan id: re-saving scan-1 does not add a third record.
	require.NoError(t, s.SaveScanResult(ctx, testOutcome("scan-1")))

	records, err := s.ListRecords(ctx, image.Parse("myregistry.azurecr.io/app:v1").PartitionKey())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_ListRecords_SkipsMalformedRecords(t *testing.T) {
	s, rdb := newTestStore(t)
	ctx := context.Background()

	outcome := testOutcome("scan-1")
	require.NoError(t, s.SaveScanResult(ctx, outcome))

	partition := outcome.Image.PartitionKey()
	require.NoError(t, rdb.HSet(ctx, s.recordsKey(partition), "garbage", "{not json").Err())

	records, err := s.ListRecords(ctx, partition)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStore_ListRecords_EmptyPartition(t *testing.T) {
	s, _ := newTestStore(t)

	records, err := s.ListRecords(context.Background(), "unknown_partition")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_SaveError(t *testing.T) {
	s, rdb := newTestStore(t)
	ctx := context.Background()

	s.SaveError(ctx, report.ErrorRecord{
		Timestamp: "2025-06-01T12:00:00Z",
		Image:     "docker.io/library/nginx:latest",
		Error:     "scan timeout",
	})

	value, err := rdb.Get(ctx, "test:store:errors:docker.io_library_nginx_latest:2025-06-01T12:00:00Z").Result()
	require.NoError(t, err)

	var record report.ErrorRecord
	require.NoError(t, json.Unmarshal([]byte(value), &record))
	assert.Equal(t, "scan timeout", record.Error)
}

func TestStore_GetPayload_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	payload, err := s.GetPayload(context.Background(), "does/not/exist.json")
	require.NoError(t, err)
	assert.Nil(t, payload)
}
