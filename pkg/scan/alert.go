package scan

import (
	"context"
	"log/slog"

	"github.com/deploywatch/scanner-qualys/pkg/report"
)

// ShouldAlert reports whether the vulnerability counts cross the given
// severity threshold. Threshold CRITICAL alerts on critical findings only;
// threshold HIGH alerts on critical or high findings.
func ShouldAlert(summary report.VulnerabilitySummary, threshold string) bool {
	switch threshold {
	case "CRITICAL":
		return summary.Critical > 0
	case "HIGH":
		return summary.Critical > 0 || summary.High > 0
	}
	return false
}

// Notifier receives alert worthy scan outcomes. The actual notification
// channel lives outside this core.
type Notifier interface {
	Notify(ctx context.Context, outcome report.ScanOutcome)
}

type logNotifier struct {
}

// NewLogNotifier returns a Notifier that records the alert in the log.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Notify(_ context.Context, outcome report.ScanOutcome) {
	slog.Warn("SECURITY ALERT: high severity vulnerabilities found",
		slog.String("image", outcome.Image.Canonical()),
		slog.String("scan_id", outcome.ScanID),
		slog.Int("critical", outcome.Vulnerabilities.Critical),
		slog.Int("high", outcome.Vulnerabilities.High),
	)
}
