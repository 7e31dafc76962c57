package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string // connection string for the database
	NatsURL            string // URL of the NATS server
	BlobDir            string // base directory for the filesystem blob store
	HTTPAddr           string // listen addr for the HTTP API
	LogLevel           string // sets the log level (zap log level values)
	SQLLogLevel        string // sets the log level for sql subsystem
	LogFormat          string // text vs json
	LogConfig          string // path to log config file (zapfilter rules)
	WaitForServices    string // duration to wait for other services to be ready
	ProtocolVersion    string // telemetry packet layout revision (v1, v2)
	JobTimeout         string // wall clock timeout for processing one capture
	MigrationSourceURL string // location of migration files
)

// Config holds configuration values used by the application
type Config struct {
	ProtocolVersion string
}
