package scan

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/deploywatch/scanner-qualys/pkg/metrics"
	"github.com/deploywatch/scanner-qualys/pkg/qscanner"
	"github.com/deploywatch/scanner-qualys/pkg/report"
)

// Clock wraps the Now method. Introduced to allow replacing the global state with fixed clocks to facilitate testing.
// Now returns the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct {
}

func (c *SystemClock) Now() time.Time {
	return time.Now()
}

// Normalizer maps the unstable qscanner output tree onto the canonical
// vulnerability and compliance summaries.
type Normalizer interface {
	Normalize(out qscanner.ScanOutput) (report.VulnerabilitySummary, report.ComplianceSummary)
}

type normalizer struct {
}

func NewNormalizer() Normalizer {
	return &normalizer{}
}

func (n *normalizer) Normalize(out qscanner.ScanOutput) (report.VulnerabilitySummary, report.ComplianceSummary) {
	return n.normalizeVulnerabilities(out), n.normalizeCompliance(out)
}

func (n *normalizer) normalizeVulnerabilities(out qscanner.ScanOutput) report.VulnerabilitySummary {
	summary := report.VulnerabilitySummary{
		Details: []report.Finding{},
	}

	for _, item := range out.Vulnerabilities() {
		vuln, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		severity := NormalizeSeverity(stringField(vuln, "severity"))
		summary.Add(severity)

		pkgName, pkgVersion := packageFields(vuln)
		summary.Details = append(summary.Details, report.Finding{
			ID:           lo.CoalesceOrEmpty(stringField(vuln, "qid"), stringField(vuln, "id")),
			CVE:          lo.CoalesceOrEmpty(stringField(vuln, "cve"), stringField(vuln, "cveId")),
			Severity:     severity,
			Title:        lo.CoalesceOrEmpty(stringField(vuln, "title"), stringField(vuln, "name")),
			Package:      pkgName,
			Version:      pkgVersion,
			FixedVersion: lo.CoalesceOrEmpty(stringField(vuln, "fixedVersion"), stringField(vuln, "fix")),
		})
	}

	slog.Debug("Normalized vulnerabilities",
		slog.Int("total", summary.Total),
		slog.Int("critical", summary.Critical),
		slog.Int("high", summary.High),
	)

	return summary
}

func (n *normalizer) normalizeCompliance(out qscanner.ScanOutput) report.ComplianceSummary {
	summary := report.ComplianceSummary{
		Checks: []report.ComplianceCheck{},
	}

	for _, item := range out.ComplianceChecks() {
		check, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		status := strings.ToUpper(stringField(check, "status"))
		summary.Total++

		switch status {
		case "PASS", "PASSED":
			summary.Passed++
		case "FAIL", "FAILED":
			summary.Failed++
		}

		summary.Checks = append(summary.Checks, report.ComplianceCheck{
			ID:          lo.CoalesceOrEmpty(stringField(check, "id"), stringField(check, "checkId")),
			Title:       lo.CoalesceOrEmpty(stringField(check, "title"), stringField(check, "name")),
			Status:      status,
			Description: stringField(check, "description"),
		})
	}

	return summary
}

var numericSeverities = map[string]report.Severity{
	"5": report.SevCritical,
	"4": report.SevHigh,
	"3": report.SevMedium,
	"2": report.SevLow,
	"1": report.SevInformational,
}

// NormalizeSeverity maps a scanner severity value onto the canonical scale.
// Numeric severities use the Qualys 1..5 scale; text severities match known
// tokens case insensitively. Anything unrecognized falls back to MEDIUM, a
// lossy default the metrics make visible.
func NormalizeSeverity(value string) report.Severity {
	value = strings.ToUpper(strings.TrimSpace(value))

	if severity, ok := numericSeverities[value]; ok {
		return severity
	}

	switch {
	case strings.Contains(value, "CRIT"):
		return report.SevCritical
	case strings.Contains(value, "HIGH"), strings.Contains(value, "URGENT"):
		return report.SevHigh
	case strings.Contains(value, "MED"), strings.Contains(value, "MODERATE"):
		return report.SevMedium
	case strings.Contains(value, "LOW"), strings.Contains(value, "MINOR"):
		return report.SevLow
	case strings.Contains(value, "INFO"):
		return report.SevInformational
	}

	slog.Warn("Unknown severity, defaulting to MEDIUM", slog.String("severity", value))
	metrics.UnknownSeverityTotal.Inc()
	return report.SevMedium
}

// stringField returns the named field as a string, stringifying numeric
// values, which qscanner emits for ids and some severities.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// packageFields accepts both output shapes for the affected package: a
// nested object {"package":{"name":...,"version":...}} or the flat
// packageName/packageVersion pair.
func packageFields(vuln map[string]interface{}) (string, string) {
	if pkg, ok := vuln["package"].(map[string]interface{}); ok {
		return stringField(pkg, "name"), stringField(pkg, "version")
	}
	return stringField(vuln, "packageName"), stringField(vuln, "packageVersion")
}
