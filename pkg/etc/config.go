package etc

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type Config struct {
	API        API
	Scanner    Scanner
	Store      Store
	RedisPool  RedisPool
	RedisStore RedisStore
	Rethink    Rethink
	JobQueue   JobQueue
	Cache      Cache
	Alert      Alert
	Metrics    Metrics
}

type API struct {
	Addr           string        `env:"SCANNER_API_ADDR" envDefault:":8080"`
	TLSCertificate string        `env:"SCANNER_API_TLS_CERTIFICATE"`
	TLSKey         string        `env:"SCANNER_API_TLS_KEY"`
	ClientCAs      []string      `env:"SCANNER_API_TLS_CLIENT_CAS"`
	ReadTimeout    time.Duration `env:"SCANNER_API_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SCANNER_API_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SCANNER_API_IDLE_TIMEOUT" envDefault:"60s"`
}

func (c *API) IsTLSEnabled() bool {
	return c.TLSCertificate != "" && c.TLSKey != ""
}

// Scanner holds everything needed to invoke the qscanner CLI. Credentials
// are handed to the child process via its environment, never via arguments.
type Scanner struct {
	Executable  string        `env:"SCANNER_QSCANNER_EXECUTABLE" envDefault:"qscanner"`
	Runner      string        `env:"SCANNER_QSCANNER_RUNNER" envDefault:"binary"`
	DockerImage string        `env:"SCANNER_QSCANNER_DOCKER_IMAGE" envDefault:"qualys/qscanner:latest"`
	Pod         string        `env:"SCANNER_QUALYS_POD"`
	AccessToken string        `env:"SCANNER_QUALYS_ACCESS_TOKEN"`
	ScanTypes   string        `env:"SCANNER_QSCANNER_SCAN_TYPES" envDefault:"os,sca,secret"`
	SkipTLS     bool          `env:"SCANNER_QSCANNER_SKIP_VERIFY_TLS" envDefault:"false"`
	ScanTimeout time.Duration `env:"SCANNER_SCAN_TIMEOUT" envDefault:"1800s"`
	MaxRetries  int           `env:"SCANNER_SCAN_MAX_RETRIES" envDefault:"3"`
	RetryDelay  time.Duration `env:"SCANNER_SCAN_RETRY_BASE_DELAY" envDefault:"2s"`
}

type Store struct {
	Type string `env:"SCANNER_STORE_TYPE" envDefault:"redis"`
}

type RedisPool struct {
	URL               string        `env:"SCANNER_REDIS_URL" envDefault:"redis://localhost:6379"`
	MaxActive         int           `env:"SCANNER_REDIS_POOL_MAX_ACTIVE" envDefault:"5"`
	MaxIdle           int           `env:"SCANNER_REDIS_POOL_MAX_IDLE" envDefault:"5"`
	IdleTimeout       time.Duration `env:"SCANNER_REDIS_POOL_IDLE_TIMEOUT" envDefault:"5m"`
	ConnectionTimeout time.Duration `env:"SCANNER_REDIS_POOL_CONNECTION_TIMEOUT" envDefault:"1s"`
	ReadTimeout       time.Duration `env:"SCANNER_REDIS_POOL_READ_TIMEOUT" envDefault:"1s"`
	WriteTimeout      time.Duration `env:"SCANNER_REDIS_POOL_WRITE_TIMEOUT" envDefault:"1s"`
}

type RedisStore struct {
	Namespace string `env:"SCANNER_STORE_REDIS_NAMESPACE" envDefault:"deploywatch.scanner.qualys:store"`
}

type Rethink struct {
	Addresses     []string `env:"SCANNER_STORE_RETHINK_ADDRESSES" envDefault:"localhost:28015"`
	Database      string   `env:"SCANNER_STORE_RETHINK_DATABASE" envDefault:"deploywatch"`
	RecordsTable  string   `env:"SCANNER_STORE_RETHINK_RECORDS_TABLE" envDefault:"scan_records"`
	PayloadsTable string   `env:"SCANNER_STORE_RETHINK_PAYLOADS_TABLE" envDefault:"scan_payloads"`
	InitialCap    int      `env:"SCANNER_STORE_RETHINK_INITIAL_CAP" envDefault:"1"`
	MaxOpen       int      `env:"SCANNER_STORE_RETHINK_MAX_OPEN" envDefault:"5"`
}

type JobQueue struct {
	Namespace         string `env:"SCANNER_JOB_QUEUE_REDIS_NAMESPACE" envDefault:"deploywatch.scanner.qualys:job-queue"`
	WorkerConcurrency int    `env:"SCANNER_JOB_QUEUE_WORKER_CONCURRENCY" envDefault:"1"`
}

type Cache struct {
	Window time.Duration `env:"SCANNER_SCAN_CACHE_WINDOW" envDefault:"24h"`
}

type Alert struct {
	SeverityThreshold string `env:"SCANNER_ALERT_SEVERITY_THRESHOLD" envDefault:"HIGH"`
}

type Metrics struct {
	Addr     string `env:"SCANNER_METRICS_ADDR" envDefault:":8090"`
	Endpoint string `env:"SCANNER_METRICS_ENDPOINT" envDefault:"/metrics"`
}

func GetConfig() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

func GetLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("SCANNER_LOG_LEVEL")) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
