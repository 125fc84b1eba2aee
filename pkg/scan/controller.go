package scan

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/xerrors"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
	"github.com/deploywatch/scanner-qualys/pkg/image"
	"github.com/deploywatch/scanner-qualys/pkg/metrics"
	"github.com/deploywatch/scanner-qualys/pkg/persistence"
	"github.com/deploywatch/scanner-qualys/pkg/qscanner"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

const scannerName = "qscanner"

// Controller orchestrates one batch of image scans: parse, dedup check,
// execute, normalize, persist, alert. Per image failures go to the error
// sink and do not abort the rest of the batch.
type Controller interface {
	ProcessImages(ctx context.Context, images []string, tags map[string]string)
	ScanImage(ctx context.Context, imageString string, tags map[string]string) (*report.ScanOutcome, error)
}

type controller struct {
	cacheWindow    time.Duration
	alertThreshold string
	scannerVersion string

	store      persistence.Store
	wrapper    qscanner.Wrapper
	normalizer Normalizer
	cache      Cache
	notifier   Notifier
	clock      Clock
}

func NewController(config etc.Config, store persistence.Store, wrapper qscanner.Wrapper, normalizer Normalizer, cache Cache, notifier Notifier, clock Clock, scannerVersion string) Controller {
	return &controller{
		cacheWindow:    config.Cache.Window,
		alertThreshold: config.Alert.SeverityThreshold,
		scannerVersion: scannerVersion,

		store:      store,
		wrapper:    wrapper,
		normalizer: normalizer,
		cache:      cache,
		notifier:   notifier,
		clock:      clock,
	}
}

func (c *controller) ProcessImages(ctx context.Context, images []string, tags map[string]string) {
	for _, imageString := range images {
		if _, err := c.ScanImage(ctx, imageString, tags); err != nil {
			slog.Error("Scan failed",
				slog.String("image", imageString),
				slog.String("err", err.Error()),
			)
			c.store.SaveError(ctx, report.ErrorRecord{
				Timestamp: c.clock.Now().UTC().Format(time.RFC3339),
				Image:     imageString,
				Error:     err.Error(),
				Tags:      tags,
			})
		}
	}
}

// ScanImage scans a single image unless it was scanned within the cache
// window. A nil outcome with a nil error means the scan was skipped.
func (c *controller) ScanImage(ctx context.Context, imageString string, tags map[string]string) (*report.ScanOutcome, error) {
	ref := image.Parse(imageString)

	if c.cache.IsRecentlyScanned(ctx, ref, c.cacheWindow) {
		slog.Info("Image was recently scanned, skipping",
			slog.String("image", ref.Canonical()),
		)
		return nil, nil
	}

	started := c.clock.Now()
	out, err := c.wrapper.Scan(ctx, ref, tags)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(report.StatusFailed)).Inc()
		return nil, xerrors.Errorf("running qscanner wrapper: %w", err)
	}
	metrics.ScanDurationSeconds.Observe(c.clock.Now().Sub(started).Seconds())

	outcome := c.buildOutcome(ref, out, tags)
	metrics.ScansTotal.WithLabelValues(string(outcome.Status)).Inc()

	if err = c.store.SaveScanResult(ctx, outcome); err != nil {
		return nil, xerrors.Errorf("saving scan result: %w", err)
	}

	if ShouldAlert(outcome.Vulnerabilities, c.alertThreshold) {
		metrics.AlertsTotal.Inc()
		c.notifier.Notify(ctx, outcome)
	}

	return &outcome, nil
}

func (c *controller) buildOutcome(ref image.Reference, out qscanner.ScanOutput, tags map[string]string) report.ScanOutcome {
	status := report.StatusCompleted
	if !out.IsParsed() {
		status = report.StatusParseError
		slog.Warn("Scanner output is not structured, recording parse error",
			slog.String("image", ref.Canonical()),
		)
	}

	scanID := out.ScanID()
	if scanID == "" {
		scanID = c.clock.Now().UTC().Format("20060102150405")
	}

	vulnerabilities, compliance := c.normalizer.Normalize(out)

	return report.ScanOutcome{
		ScanID:          scanID,
		Status:          status,
		Image:           ref,
		Vulnerabilities: vulnerabilities,
		Compliance:      compliance,
		Metadata: report.Metadata{
			Registry:       ref.Registry,
			Repository:     ref.Repository,
			Tag:            ref.Tag,
			Digest:         ref.Digest,
			ScanTimestamp:  c.clock.Now().UTC(),
			Scanner:        scannerName,
			ScannerVersion: c.scannerVersion,
			Tags:           tags,
			RawOutput:      json.RawMessage(out.Raw),
		},
	}
}
