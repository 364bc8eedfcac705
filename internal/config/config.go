// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config assembles the serve configuration from flag defaults, an
// optional YAML file, explicitly set flags, and secrets in the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/userauth/internal/xdg"
)

// Error codes.
const (
	CodeInvalid     = "CONFIG_INVALID"
	CodeFileMissing = "CONFIG_FILE_MISSING"
	CodeLoadFailed  = "CONFIG_LOAD_FAILED"
)

// Backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMinIO    = "minio"
)

// Defaults.
const (
	DefaultZMQAddr         = "tcp://*:5555"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultLogFormat       = "json"
	DefaultLogLevel        = "info"
	DefaultBackend         = BackendFile
	DefaultCredentialsFile = "users.json"
	DefaultMinIOObject     = "users.json"
	DefaultConnectRetries  = 5
)

// Config is the serve configuration. Keys match the flag names.
type Config struct {
	ZMQAddr     string `koanf:"zmq-addr"`
	LineAddr    string `koanf:"line-addr"`
	MetricsAddr string `koanf:"metrics-addr"`

	LogFormat string `koanf:"log-format"`
	LogLevel  string `koanf:"log-level"`

	Backend         string `koanf:"backend"`
	CredentialsFile string `koanf:"credentials-file"`
	CreateMissing   bool   `koanf:"create-missing"`
	ConnectRetries  int    `koanf:"connect-retries"`

	MinIOEndpoint string `koanf:"minio-endpoint"`
	MinIOBucket   string `koanf:"minio-bucket"`
	MinIOObject   string `koanf:"minio-object"`
	MinIOUseSSL   bool   `koanf:"minio-use-ssl"`

	Secrets Secrets `koanf:"-"`
}

// Secrets are only read from the environment.
type Secrets struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
}

// RegisterFlags adds every config key to fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("zmq-addr", DefaultZMQAddr, "ZeroMQ REP bind endpoint (empty = disabled)")
	fs.String("line-addr", "", "JSON-lines TCP listen address (empty = disabled)")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("backend", DefaultBackend, "credential backend (file, postgres or minio)")
	fs.String("credentials-file", DefaultCredentialsFile, "credentials file for the file backend (.json or .yaml)")
	fs.Bool("create-missing", false, "start with no users if the credentials resource does not exist")
	fs.Int("connect-retries", DefaultConnectRetries, "attempts to reach the credential backend at startup")
	fs.String("minio-endpoint", "", "S3-compatible endpoint for the minio backend")
	fs.String("minio-bucket", "", "bucket for the minio backend")
	fs.String("minio-object", DefaultMinIOObject, "object name for the minio backend")
	fs.Bool("minio-use-ssl", false, "use TLS for the minio backend")
}

// ResolvePath returns the config file to read. An explicit path is used as
// is; otherwise the XDG default is used when it exists, else "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	def := xdg.DefaultConfigFile()
	if _, err := os.Stat(def); err == nil {
		return def
	}
	return ""
}

// Load builds a Config. path may be empty. environ overrides the process
// environment for secrets when non-nil.
func Load(path string, flags *pflag.FlagSet, environ map[string]string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code(CodeFileMissing).With("path", path).Wrap(err)
			}
			return nil, oops.Code(CodeLoadFailed).With("path", path).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file left unset.
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code(CodeLoadFailed).Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeLoadFailed).With("path", path).Wrap(err)
	}

	secrets, err := LoadSecrets(environ)
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets

	return &cfg, nil
}

// LoadSecrets reads Secrets from environ, or the process environment when
// environ is nil.
func LoadSecrets(environ map[string]string) (Secrets, error) {
	var s Secrets
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Secrets{}, oops.Code(CodeLoadFailed).Wrap(err)
	}
	return s, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code(CodeInvalid).With("key", key).Errorf(format, args...)
	}

	if c.ZMQAddr == "" && c.LineAddr == "" {
		return invalid("zmq-addr", "at least one of zmq-addr or line-addr is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.LogFormat) {
		return invalid("log-format", "log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.ConnectRetries < 1 {
		return invalid("connect-retries", "connect-retries must be at least 1, got %d", c.ConnectRetries)
	}

	switch c.Backend {
	case BackendFile:
		if c.CredentialsFile == "" {
			return invalid("credentials-file", "credentials-file is required for the file backend")
		}
	case BackendPostgres:
		if c.Secrets.DatabaseURL == "" {
			return invalid("DATABASE_URL", "DATABASE_URL environment variable is required for the postgres backend")
		}
	case BackendMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" || c.MinIOObject == "" {
			return invalid("minio-endpoint", "minio-endpoint, minio-bucket and minio-object are required for the minio backend")
		}
		if c.Secrets.MinIOAccessKey == "" || c.Secrets.MinIOSecretKey == "" {
			return invalid("MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio backend")
		}
	default:
		return invalid("backend", "backend must be one of file, postgres, minio, got %q", c.Backend)
	}
	return nil
}
