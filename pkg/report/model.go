package report

import (
	"encoding/json"
	"time"

	"github.com/deploywatch/scanner-qualys/pkg/image"
)

// Severity is the canonical severity scale every scanner output shape is
// normalized to.
type Severity string

const (
	SevCritical      Severity = "CRITICAL"
	SevHigh          Severity = "HIGH"
	SevMedium        Severity = "MEDIUM"
	SevLow           Severity = "LOW"
	SevInformational Severity = "INFORMATIONAL"
)

// Severities lists the canonical severities from most to least severe.
var Severities = []Severity{SevCritical, SevHigh, SevMedium, SevLow, SevInformational}

type ScanStatus string

const (
	StatusCompleted  ScanStatus = "COMPLETED"
	StatusParseError ScanStatus = "PARSE_ERROR"
	StatusFailed     ScanStatus = "FAILED"
)

// Finding is one normalized vulnerability detail record.
type Finding struct {
	ID           string   `json:"qid,omitempty"`
	CVE          string   `json:"cve,omitempty"`
	Severity     Severity `json:"severity"`
	Title        string   `json:"title,omitempty"`
	Package      string   `json:"package,omitempty"`
	Version      string   `json:"version,omitempty"`
	FixedVersion string   `json:"fixed_version,omitempty"`
}

// VulnerabilitySummary holds per severity counts and the ordered finding
// details. The per severity counts always sum up to Total.
type VulnerabilitySummary struct {
	Critical      int       `json:"CRITICAL"`
	High          int       `json:"HIGH"`
	Medium        int       `json:"MEDIUM"`
	Low           int       `json:"LOW"`
	Informational int       `json:"INFORMATIONAL"`
	Total         int       `json:"total"`
	Details       []Finding `json:"details"`
}

// Count returns the number of findings with the given severity.
func (s VulnerabilitySummary) Count(severity Severity) int {
	switch severity {
	case SevCritical:
		return s.Critical
	case SevHigh:
		return s.High
	case SevMedium:
		return s.Medium
	case SevLow:
		return s.Low
	case SevInformational:
		return s.Informational
	}
	return 0
}

// Add records one finding with the given severity.
func (s *VulnerabilitySummary) Add(severity Severity) {
	switch severity {
	case SevCritical:
		s.Critical++
	case SevHigh:
		s.High++
	case SevMedium:
		s.Medium++
	case SevLow:
		s.Low++
	case SevInformational:
		s.Informational++
	}
	s.Total++
}

type ComplianceCheck struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// ComplianceSummary counts compliance checks. Checks with a status other
// than pass or fail contribute to Total only, so Passed+Failed <= Total.
type ComplianceSummary struct {
	Passed int               `json:"passed"`
	Failed int               `json:"failed"`
	Total  int               `json:"total"`
	Checks []ComplianceCheck `json:"checks"`
}

// Metadata carries scan provenance, including the raw scanner output so a
// result remains diagnosable even when its shape could not be parsed.
type Metadata struct {
	Registry       string            `json:"registry"`
	Repository     string            `json:"repository"`
	Tag            string            `json:"tag"`
	Digest         string            `json:"digest,omitempty"`
	ScanTimestamp  time.Time         `json:"scan_timestamp"`
	Scanner        string            `json:"scanner"`
	ScannerVersion string            `json:"scanner_version,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
	RawOutput      json.RawMessage   `json:"raw_output,omitempty"`
}

// ScanOutcome is the full normalized record of one scan execution. It is
// immutable once built and written exactly once to the result store.
type ScanOutcome struct {
	ScanID          string               `json:"scan_id"`
	Status          ScanStatus           `json:"status"`
	Image           image.Reference      `json:"image"`
	Vulnerabilities VulnerabilitySummary `json:"vulnerabilities"`
	Compliance      ComplianceSummary    `json:"compliance"`
	Metadata        Metadata             `json:"metadata"`
}

// ScanRecord is the denormalized metadata projection of a ScanOutcome,
// keyed by (partition=sanitized canonical image name, row=scan id). The
// timestamp is stored as a string on purpose: the cache parses it back and
// skips records whose value does not parse.
type ScanRecord struct {
	PartitionKey     string     `json:"partition_key" rethinkdb:"partition_key"`
	ScanID           string     `json:"scan_id" rethinkdb:"scan_id"`
	Image            string     `json:"image" rethinkdb:"image"`
	Timestamp        string     `json:"timestamp" rethinkdb:"timestamp"`
	Status           ScanStatus `json:"status" rethinkdb:"status"`
	VulnCritical     int        `json:"vuln_critical" rethinkdb:"vuln_critical"`
	VulnHigh         int        `json:"vuln_high" rethinkdb:"vuln_high"`
	VulnMedium       int        `json:"vuln_medium" rethinkdb:"vuln_medium"`
	VulnLow          int        `json:"vuln_low" rethinkdb:"vuln_low"`
	VulnTotal        int        `json:"vuln_total" rethinkdb:"vuln_total"`
	CompliancePassed int        `json:"compliance_passed" rethinkdb:"compliance_passed"`
	ComplianceFailed int        `json:"compliance_failed" rethinkdb:"compliance_failed"`
	ObjectPath       string     `json:"object_path" rethinkdb:"object_path"`
}

// NewScanRecord projects an outcome onto its persisted metadata record.
func NewScanRecord(outcome ScanOutcome) ScanRecord {
	partition := outcome.Image.PartitionKey()
	return ScanRecord{
		PartitionKey:     partition,
		ScanID:           outcome.ScanID,
		Image:            outcome.Image.Canonical(),
		Timestamp:        outcome.Metadata.ScanTimestamp.UTC().Format(time.RFC3339),
		Status:           outcome.Status,
		VulnCritical:     outcome.Vulnerabilities.Critical,
		VulnHigh:         outcome.Vulnerabilities.High,
		VulnMedium:       outcome.Vulnerabilities.Medium,
		VulnLow:          outcome.Vulnerabilities.Low,
		VulnTotal:        outcome.Vulnerabilities.Total,
		CompliancePassed: outcome.Compliance.Passed,
		ComplianceFailed: outcome.Compliance.Failed,
		ObjectPath:       ObjectPath(partition, outcome.ScanID),
	}
}

// ObjectPath returns the storage location of the full payload for the
// given partition and scan id.
func ObjectPath(partitionKey, scanID string) string {
	return partitionKey + "/" + scanID + ".json"
}

// ErrorRecord is a best effort diagnostic written to the error sink when a
// per image scan fails.
type ErrorRecord struct {
	Timestamp string            `json:"timestamp"`
	Image     string            `json:"image"`
	Error     string            `json:"error"`
	Tags      map[string]string `json:"tags,omitempty"`
}
