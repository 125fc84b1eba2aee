package etc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Check checks config values to fail fast in case of any problems
// that we might have due to invalid config.
func Check(config Config) error {
	slog.Debug("Current process", slog.Int("pid", os.Getpid()))

	if config.Scanner.Executable == "" {
		return errors.New("qscanner executable must not be blank")
	}

	switch config.Scanner.Runner {
	case "binary", "docker":
	default:
		return fmt.Errorf("unrecognized qscanner runner: %s", config.Scanner.Runner)
	}

	if config.Scanner.ScanTimeout <= 0 {
		return errors.New("scan timeout must be positive")
	}

	if config.Scanner.MaxRetries < 0 {
		return errors.New("scan max retries cannot be negative")
	}

	if config.Cache.Window < 0 {
		return errors.New("scan cache window cannot be negative")
	}

	switch config.Alert.SeverityThreshold {
	case "CRITICAL", "HIGH":
	default:
		return fmt.Errorf("alert severity threshold must be CRITICAL or HIGH, got %s", config.Alert.SeverityThreshold)
	}

	if config.API.IsTLSEnabled() {
		if !fileExists(config.API.TLSCertificate) {
			return fmt.Errorf("TLS certificate file does not exist: %s", config.API.TLSCertificate)
		}
		if !fileExists(config.API.TLSKey) {
			return fmt.Errorf("TLS private key file does not exist: %s", config.API.TLSKey)
		}
	}

	storeType := strings.ToLower(config.Store.Type)

	if storeType != "redis" && storeType != "rethinkdb" {
		return errors.New("store type must be either redis or rethinkdb")
	}

	if storeType == "rethinkdb" {
		if err := checkRethinkConfig(config.Rethink); err != nil {
			return fmt.Errorf("rethink configuration is invalid: %w", err)
		}
	}

	if config.JobQueue.WorkerConcurrency < 1 {
		return errors.New("job queue worker concurrency cannot be less than 1")
	}

	return nil
}

func checkRethinkConfig(config Rethink) error {
	if len(config.Addresses) == 0 {
		return errors.New("at least one address must be provided")
	}

	if config.InitialCap < 0 {
		return errors.New("InitialCap cannot be less than 0")
	}

	if config.MaxOpen < 1 {
		return errors.New("MaxOpen cannot be less than 1")
	}

	if config.Database == "" {
		return errors.New("database is not configured")
	}

	if config.RecordsTable == "" {
		return errors.New("RecordsTable is not configured")
	}

	if config.PayloadsTable == "" {
		return errors.New("PayloadsTable is not configured")
	}

	return nil
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
