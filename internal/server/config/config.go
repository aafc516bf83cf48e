// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the lastword server.
//
// Fields:
//   - EndpointAddr: bind address for the public HTTP endpoint.
//   - BaseURL: externally reachable base URL used in check-in and claim links.
//   - DatabasePath: path to the SQLite database file.
//   - NodeName: identifier used in snapshot filenames; defaults to the hostname when empty.
//   - SweepInterval: how often the monitor scans triggers.
//   - SnapshotInterval: how often the database is backed up to the object store.
//   - CallTimeout: per-call deadline for object store and mail operations.
//   - DisableCheckinSync: skip cross-node check-in reconciliation.
//   - S3AccessKey / S3SecretKey: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings. An empty
//     bucket disables the object store entirely.
//   - SMTPHost / SMTPPort / SMTPUser / SMTPPassword / SMTPFrom: outgoing mail
//     settings. An empty host routes notifications to the log instead.
type Config struct {
	EndpointAddr       string        `env:"ENDPOINT_ADDR"`
	BaseURL            string        `env:"BASE_URL"`
	DatabasePath       string        `env:"DATABASE_PATH"`
	NodeName           string        `env:"NODE_NAME"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL"`
	SnapshotInterval   time.Duration `env:"SNAPSHOT_INTERVAL"`
	CallTimeout        time.Duration `env:"CALL_TIMEOUT"`
	DisableCheckinSync bool          `env:"DISABLE_CHECKIN_SYNC"`
	S3AccessKey        string        `env:"S3_ACCESS_KEY"`
	S3SecretKey        string        `env:"S3_SECRET_KEY"`
	S3Bucket           string        `env:"S3_BUCKET"`
	S3Region           string        `env:"S3_REGION"`
	S3BaseEndpoint     string        `env:"S3_BASE_ENDPOINT"`
	SMTPHost           string        `env:"SMTP_HOST"`
	SMTPPort           int           `env:"SMTP_PORT"`
	SMTPUser           string        `env:"SMTP_USER"`
	SMTPPassword       string        `env:"SMTP_PASSWORD"`
	SMTPFrom           string        `env:"SMTP_FROM"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: Mail and object storage are disabled until configured.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.BaseURL = "http://localhost:8080"
	c.DatabasePath = "data/lastword.sqlite"
	c.NodeName = ""
	c.SweepInterval = 1 * time.Hour
	c.SnapshotInterval = 24 * time.Hour
	c.CallTimeout = 30 * time.Second
	c.DisableCheckinSync = false
	c.S3Region = "us-east-1"
	c.SMTPPort = 587
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, environment variables with the LASTWORD_
// prefix, and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
