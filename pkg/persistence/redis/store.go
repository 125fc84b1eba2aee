package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

type store struct {
	namespace string
	rdb       *redis.Client
}

func NewStore(cfg etc.RedisStore, rdb *redis.Client) persistence.Store {
	return &store{
		namespace: cfg.Namespace,
		rdb:       rdb,
	}
}

func (s *store) SaveScanResult(ctx context.Context, outcome report.ScanOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return xerrors.Errorf("marshalling scan outcome: %w", err)
	}

	record := report.NewScanRecord(outcome)

	slog.Debug("Saving scan result",
		slog.String("scan_id", outcome.ScanID),
		slog.String("partition_key", record.PartitionKey),
		slog.String("object_path", record.ObjectPath),
	)

	// Payload object first, metadata record second. A crash in between
	// orphans the object; the cache simply never sees that scan.
	if err = s.rdb.Set(ctx, s.payloadKey(record.ObjectPath), payload, 0).Err(); err != nil {
		return xerrors.Errorf("saving scan payload: %w", err)
	}

	b, err := json.Marshal(record)
	if err != nil {
		return xerrors.Errorf("marshalling scan record: %w", err)
	}

	if err = s.rdb.HSet(ctx, s.recordsKey(record.PartitionKey), record.ScanID, string(b)).Err(); err != nil {
		return xerrors.Errorf("saving scan record: %w", err)
	}

	return nil
}

func (s *store) SaveError(ctx context.Context, record report.ErrorRecord) {
	b, err := json.Marshal(record)
	if err != nil {
		slog.Error("Error while marshalling error record", slog.String("err", err.Error()))
		return
	}

	key := s.errorKey(record.Image, record.Timestamp)
	if err = s.rdb.Set(ctx, key, string(b), 0).Err(); err != nil {
		slog.Error("Error while saving error record",
			slog.String("redis_key", key),
			slog.String("err", err.Error()),
		)
		return
	}

	slog.Debug("Saved error record", slog.String("redis_key", key))
}

func (s *store) ListRecords(ctx context.Context, partitionKey string) ([]report.ScanRecord, error) {
	values, err := s.rdb.HVals(ctx, s.recordsKey(partitionKey)).Result()
	if err != nil {
		return nil, xerrors.Errorf("listing scan records: %w", err)
	}

	records := make([]report.ScanRecord, 0, len(values))
	for _, value := range values {
		var record report.ScanRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			slog.Warn("Skipping malformed scan record",
				slog.String("partition_key", partitionKey),
				slog.String("err", err.Error()),
			)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *store) GetPayload(ctx context.Context, objectPath string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.payloadKey(objectPath)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, xerrors.Errorf("getting scan payload: %w", err)
	}
	return value, nil
}

func (s *store) payloadKey(objectPath string) string {
	return fmt.Sprintf("%s:payload:%s", s.namespace, objectPath)
}

func (s *store) recordsKey(partitionKey string) string {
	return fmt.Sprintf("%s:records:%s", s.namespace, partitionKey)
}

func (s *store) errorKey(imageName, timestamp string) string {
	return fmt.Sprintf("%s:errors:%s:%s", s.namespace, image.Sanitize(imageName), timestamp)
}
