package etc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Scanner: Scanner{
			Executable:  "qscanner",
			Runner:      "binary",
			ScanTimeout: 30 * time.Minute,
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
		},
		Store: Store{Type: "redis"},
		Rethink: Rethink{
			Addresses:     []string{"localhost:28015"},
			Database:      "deploywatch",
			RecordsTable:  "scan_records",
			PayloadsTable: "scan_payloads",
			InitialCap:    1,
			MaxOpen:       5,
		},
		JobQueue: JobQueue{WorkerConcurrency: 1},
		Cache:    Cache{Window: 24 * time.Hour},
		Alert:    Alert{SeverityThreshold: "HIGH"},
	}
}

func TestCheck(t *testing.T) {
	t.Run("Should accept a valid config", func(t *testing.T) {
		require.NoError(t, Check(validConfig()))
	})

	testCases := []struct {
		Name          string
		Mutate        func(config *Config)
		ExpectedError string
	}{
		{
			Name:          "blank executable",
			Mutate:        func(c *Config) { c.Scanner.Executable = "" },
			ExpectedError: "qscanner executable must not be blank",
		},
		{
			Name:          "unrecognized runner",
			Mutate:        func(c *Config) { c.Scanner.Runner = "podman" },
			ExpectedError: "unrecognized qscanner runner: podman",
		},
		{
			Name:          "non positive scan timeout",
			Mutate:        func(c *Config) { c.Scanner.ScanTimeout = 0 },
			ExpectedError: "scan timeout must be positive",
		},
		{
			Name:          "negative max retries",
			Mutate:        func(c *Config) { c.Scanner.MaxRetries = -1 },
			ExpectedError: "scan max retries cannot be negative",
		},
		{
			Name:          "negative cache window",
			Mutate:        func(c *Config) { c.Cache.Window = -time.Hour },
			ExpectedError: "scan cache window cannot be negative",
		},
		{
			Name:          "invalid alert threshold",
			Mutate:        func(c *Config) { c.Alert.SeverityThreshold = "MEDIUM" },
			ExpectedError: "alert severity threshold must be CRITICAL or HIGH, got MEDIUM",
		},
		{
			Name:          "invalid store type",
			Mutate:        func(c *Config) { c.Store.Type = "cassandra" },
			ExpectedError: "store type must be either redis or rethinkdb",
		},
		{
			Name: "rethinkdb store without addresses",
			Mutate: func(c *Config) {
				c.Store.Type = "rethinkdb"
				c.Rethink.Addresses = nil
			},
			ExpectedError: "rethink configuration is invalid: at least one address must be provided",
		},
		{
			Name: "rethinkdb store without database",
			Mutate: func(c *Config) {
				c.Store.Type = "rethinkdb"
				c.Rethink.Database = ""
			},
			ExpectedError: "rethink configuration is invalid: database is not configured",
		},
		{
			Name:          "worker concurrency below 1",
			Mutate:        func(c *Config) { c.JobQueue.WorkerConcurrency = 0 },
			ExpectedError: "job queue worker concurrency cannot be less than 1",
		},
		{
			Name: "TLS certificate file does not exist",
			Mutate: func(c *Config) {
				c.API.TLSCertificate = "/no/such/cert.pem"
				c.API.TLSKey = "/no/such/key.pem"
			},
			ExpectedError: "TLS certificate file does not exist: /no/such/cert.pem",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			config := validConfig()
			tc.Mutate(&config)
			assert.EqualError(t, Check(config), tc.ExpectedError)
		})
	}
}
