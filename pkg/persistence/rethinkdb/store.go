package rethinkdb

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/xerrors"
	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

type rethinkScanRecord struct {
	ID string `rethinkdb:"id"`
	report.ScanRecord
}

type rethinkPayload struct {
	ID      string `rethinkdb:"id"`
	Payload string `rethinkdb:"payload"`
}

type store struct {
	conn r.QueryExecutor
	cfg  etc.Rethink
}

func NewStore(conn r.QueryExecutor, cfg etc.Rethink) persistence.Store {
	return &store{
		conn: conn,
		cfg:  cfg,
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
		slog.String("rethinkdb_table", s.cfg.RecordsTable),
	)

	// Payload first, metadata record second, matching the redis store.
	_, err = r.Table(s.cfg.PayloadsTable).Insert(rethinkPayload{
		ID:      record.ObjectPath,
		Payload: string(payload),
	}, r.InsertOpts{Conflict: "replace"}).RunWrite(s.conn, r.RunOpts{Context: ctx})
	if err != nil {
		return xerrors.Errorf("saving scan payload: %w", err)
	}

	_, err = r.Table(s.cfg.RecordsTable).Insert(rethinkScanRecord{
		ID:         record.PartitionKey + "/" + record.ScanID,
		ScanRecord: record,
	}, r.InsertOpts{Conflict: "replace"}).RunWrite(s.conn, r.RunOpts{Context: ctx})
	if err != nil {
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

	id := "errors/" + image.Sanitize(record.Image) + "/" + record.Timestamp + ".json"
	_, err = r.Table(s.cfg.PayloadsTable).Insert(rethinkPayload{
		ID:      id,
		Payload: string(b),
	}, r.InsertOpts{Conflict: "replace"}).RunWrite(s.conn, r.RunOpts{Context: ctx})
	if err != nil {
		slog.Error("Error while saving error record",
			slog.String("id", id),
			slog.String("err", err.Error()),
		)
		return
	}

	slog.Debug("Saved error record", slog.String("id", id))
}

func (s *store) ListRecords(ctx context.Context, partitionKey string) ([]report.ScanRecord, error) {
	rows := make([]rethinkScanRecord, 0)
	err := r.Table(s.cfg.RecordsTable).
		GetAllByIndex("partition_key", partitionKey).
		ReadAll(&rows, s.conn, r.RunOpts{Context: ctx})
	if err != nil {
		return nil, xerrors.Errorf("listing scan records: %w", err)
	}

	records := make([]report.ScanRecord, len(rows))
	for i, row := range rows {
		records[i] = row.ScanRecord
	}

	return records, nil
}

func (s *store) GetPayload(ctx context.Context, objectPath string) ([]byte, error) {
	var row rethinkPayload
	if err := r.Table(s.cfg.PayloadsTable).Get(objectPath).ReadOne(&row, s.conn, r.RunOpts{Context: ctx}); err != nil {
		if err == r.ErrEmptyResult {
			return nil, nil
		}
		return nil, xerrors.Errorf("getting scan payload: %w", err)
	}
	return []byte(row.Payload), nil
}
