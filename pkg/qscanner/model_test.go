package qscanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutput(t *testing.T) {
	t.Run("Should find vulnerability list at the top level", func(t *testing.T) {
		out := ParseOutput([]byte(`{"scanId":"s-1","vulnerabilities":[{"severity":"HIGH"}]}`))
		assert.True(t, out.IsParsed())
		assert.Equal(t, "s-1", out.ScanID())
		assert.Len(t, out.Vulnerabilities(), 1)
	})

	t.Run("Should find vulnerability list nested under results", func(t *testing.T) {
		out := ParseOutput([]byte(`{"results":{"vulnerabilities":[{"severity":"LOW"},{"severity":"HIGH"}]}}`))
		assert.Len(t, out.Vulnerabilities(), 2)
	})

	t.Run("Should find vulnerability list nested under imageDetails", func(t *testing.T) {
		out := ParseOutput([]byte(`{"imageDetails":{"vulnerabilities":[{"severity":"LOW"}]}}`))
		assert.Len(t, out.Vulnerabilities(), 1)
	})

	t.Run("Should prefer the top level list over nested ones", func(t *testing.T) {
		out := ParseOutput([]byte(`{"vulnerabilities":[{"severity":"HIGH"}],"results":{"vulnerabilities":[]}}`))
		assert.Len(t, out.Vulnerabilities(), 1)
	})

	t.Run("Should find compliance checks nested under results", func(t *testing.T) {
		out := ParseOutput([]byte(`{"results":{"compliance":[{"status":"PASS"}]}}`))
		assert.Len(t, out.ComplianceChecks(), 1)
	})

	t.Run("Should preserve raw bytes when output is not JSON", func(t *testing.T) {
		out := ParseOutput([]byte("not json at all"))
		assert.False(t, out.IsParsed())
		assert.Equal(t, []byte("not json at all"), out.Raw)
		assert.Nil(t, out.Vulnerabilities())
		assert.Nil(t, out.ComplianceChecks())
	})

	t.Run("Should treat a JSON array as unparseable", func(t *testing.T) {
		out := ParseOutput([]byte(`[{"severity":"HIGH"}]`))
		assert.False(t, out.IsParsed())
	})
}
