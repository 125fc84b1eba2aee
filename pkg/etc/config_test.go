package etc

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Envs map[string]string

func setenvs(t *testing.T, envs Envs) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestGetLogLevel(t *testing.T) {
	testCases := []struct {
		Name             string
		Envs             Envs
		ExpectedLogLevel slog.Level
	}{
		{
			Name:             "Should return default log level when env is not set",
			ExpectedLogLevel: slog.LevelInfo,
		},
		{
			Name: "Should return default log level when env has invalid value",
			Envs: Envs{
				"SCANNER_LOG_LEVEL": "unknown_level",
			},
			ExpectedLogLevel: slog.LevelInfo,
		},
		{
			Name: "Should return log level set as env",
			Envs: Envs{
				"SCANNER_LOG_LEVEL": "debug",
			},
			ExpectedLogLevel: slog.LevelDebug,
		},
		{
			Name: "Should recognize the warning alias",
			Envs: Envs{
				"SCANNER_LOG_LEVEL": "warning",
			},
			ExpectedLogLevel: slog.LevelWarn,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			setenvs(t, tc.Envs)
			assert.Equal(t, tc.ExpectedLogLevel, GetLogLevel())
		})
	}
}

func TestGetConfig(t *testing.T) {
	t.Run("Should return default config", func(t *testing.T) {
		config, err := GetConfig()
		require.NoError(t, err)

		assert.Equal(t, API{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}, config.API)

		assert.Equal(t, Scanner{
			Executable:  "qscanner",
			Runner:      "binary",
			DockerImage: "qualys/qscanner:latest",
			ScanTypes:   "os,sca,secret",
			ScanTimeout: 1800 * time.Second,
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
		}, config.Scanner)

		assert.Equal(t, Store{Type: "redis"}, config.Store)
		assert.Equal(t, Cache{Window: 24 * time.Hour}, config.Cache)
		assert.Equal(t, Alert{SeverityThreshold: "HIGH"}, config.Alert)
		assert.Equal(t, 1, config.JobQueue.WorkerConcurrency)
	})

	t.Run("Should overwrite defaults with envs", func(t *testing.T) {
		setenvs(t, Envs{
			"SCANNER_API_ADDR":                 ":4200",
			"SCANNER_QSCANNER_RUNNER":          "docker",
			"SCANNER_QUALYS_POD":               "US2",
			"SCANNER_QUALYS_ACCESS_TOKEN":      "s3cret",
			"SCANNER_SCAN_MAX_RETRIES":         "5",
			"SCANNER_SCAN_RETRY_BASE_DELAY":    "500ms",
			"SCANNER_SCAN_CACHE_WINDOW":        "1h",
			"SCANNER_ALERT_SEVERITY_THRESHOLD": "CRITICAL",
			"SCANNER_STORE_TYPE":               "rethinkdb",
			"SCANNER_STORE_RETHINK_ADDRESSES":  "db1:28015,db2:28015",
		})

		config, err := GetConfig()
		require.NoError(t, err)

		assert.Equal(t, ":4200", config.API.Addr)
		assert.Equal(t, "docker", config.Scanner.Runner)
		assert.Equal(t, "US2", config.Scanner.Pod)
		assert.Equal(t, "s3cret", config.Scanner.AccessToken)
		assert.Equal(t, 5, config.Scanner.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, config.Scanner.RetryDelay)
		assert.Equal(t, time.Hour, config.Cache.Window)
		assert.Equal(t, "CRITICAL", config.Alert.SeverityThreshold)
		assert.Equal(t, "rethinkdb", config.Store.Type)
		assert.Equal(t, []string{"db1:28015", "db2:28015"}, config.Rethink.Addresses)
	})
}
