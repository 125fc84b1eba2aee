package qscanner

import (
	"encoding/json"
)

// ScanOutput wraps the raw standard output of one qscanner run. The JSON
// document is kept as an untyped tree because its shape is not stable
// across qscanner versions and modes.
type ScanOutput struct {
	Raw []byte
	doc map[string]interface{}
}

// ParseOutput decodes raw scanner output. It never fails: output that is
// not a JSON object yields a ScanOutput with an empty document and the raw
// bytes preserved for diagnostics.
func ParseOutput(raw []byte) ScanOutput {
	out := ScanOutput{Raw: raw}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out
	}

	out.doc = doc
	return out
}

// IsParsed reports whether the raw output decoded as a JSON object.
func (o ScanOutput) IsParsed() bool {
	return o.doc != nil
}

// ScanID returns the scan identifier reported by qscanner, if any.
func (o ScanOutput) ScanID() string {
	if id, ok := o.doc["scanId"].(string); ok {
		return id
	}
	return ""
}

// Vulnerabilities returns the vulnerability list wherever qscanner put it.
// Depending on version and mode the list shows up at the top level, nested
// under a results wrapper, or under imageDetails. First match wins.
func (o ScanOutput) Vulnerabilities() []interface{} {
	return o.lookupList("vulnerabilities")
}

// ComplianceChecks returns the compliance check list, same lookup order as
// Vulnerabilities.
func (o ScanOutput) ComplianceChecks() []interface{} {
	return o.lookupList("compliance")
}

func (o ScanOutput) lookupList(key string) []interface{} {
	if list, ok := o.doc[key].([]interface{}); ok {
		return list
	}
	if results, ok := o.doc["results"].(map[string]interface{}); ok {
		if list, ok := results[key].([]interface{}); ok {
			return list
		}
	}
	if details, ok := o.doc["imageDetails"].(map[string]interface{}); ok {
		if list, ok := details[key].([]interface{}); ok {
			return list
		}
	}
	return nil
}
