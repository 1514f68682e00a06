// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package config

import (
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	Token        TokenConfig
	Verification VerificationConfig
	SMTP         SMTPConfig
	TLS          TLSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// TokenConfig points at the PEM key pair and holds the token lifetimes.
type TokenConfig struct { //nolint:govet // fieldalignment not critical for config structs
	KeysPath               string
	PrivateKeyFile         string
	PublicKeyFile          string
	AccessTTLMinutes       int
	RefreshTTLDays         int
	ExtendedRefreshTTLDays int
}

// AccessTTL returns the access token lifetime as a duration.
func (c *TokenConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime as a duration.
func (c *TokenConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// ExtendedRefreshTTL returns the "stay logged in" refresh lifetime.
func (c *TokenConfig) ExtendedRefreshTTL() time.Duration {
	return time.Duration(c.ExtendedRefreshTTLDays) * 24 * time.Hour
}

// VerificationConfig tunes the code validity window and resend cooldown.
type VerificationConfig struct {
	CodeTTLHours          int
	ResendCooldownSeconds int
}

// CodeTTL returns the code validity window as a duration.
func (c *VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLHours) * time.Hour
}

// ResendCooldown returns the cooldown as a duration.
func (c *VerificationConfig) ResendCooldown() time.Duration {
	return time.Duration(c.ResendCooldownSeconds) * time.Second
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// TLSConfig selects how the listener terminates TLS. Mode "auto" picks off
// for localhost, manual when cert files are given, ACME when possible, and a
// self-signed certificate otherwise.
type TLSConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Mode     string // auto, off, acme, selfsigned, manual
	CertDir  string
	CertFile string
	KeyFile  string
	Email    string // ACME account email
}

// IsLocalhost reports whether the host only serves local traffic.
func IsLocalhost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1", "":
		return true
	}
	return false
}

// NewFromCLI builds the configuration from parsed CLI flags.
func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host: cmd.String("host"),
			Port: int(cmd.Int("port")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Token: TokenConfig{
			KeysPath:               cmd.String("token-keys-path"),
			PrivateKeyFile:         cmd.String("token-private-key-file"),
			PublicKeyFile:          cmd.String("token-public-key-file"),
			AccessTTLMinutes:       int(cmd.Int("access-ttl-minutes")),
			RefreshTTLDays:         int(cmd.Int("refresh-ttl-days")),
			ExtendedRefreshTTLDays: int(cmd.Int("extended-refresh-ttl-days")),
		},
		Verification: VerificationConfig{
			CodeTTLHours:          int(cmd.Int("code-ttl-hours")),
			ResendCooldownSeconds: int(cmd.Int("resend-cooldown-seconds")),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		TLS: TLSConfig{
			Mode:     cmd.String("tls-mode"),
			CertDir:  cmd.String("tls-cert-dir"),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
			Email:    cmd.String("tls-email"),
		},
	}
}

// Flags returns the CLI flag set. Every flag reads from an environment
// variable and the TOML config file as fallback sources.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/accounts.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "token-keys-path",
			Usage:   "Directory holding the RSA key pair (empty: ephemeral dev keys)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_KEYS_PATH"), toml.TOML("token.keys_path", configFile)),
		},
		&cli.StringFlag{
			Name:    "token-private-key-file",
			Value:   "private_key.pem",
			Usage:   "Private key file name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_PRIVATE_KEY_FILE"), toml.TOML("token.private_key_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "token-public-key-file",
			Value:   "public_key.pem",
			Usage:   "Public key file name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_PUBLIC_KEY_FILE"), toml.TOML("token.public_key_file", configFile)),
		},
		&cli.IntFlag{
			Name:    "access-ttl-minutes",
			Value:   30,
			Usage:   "Access token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_TTL_MINUTES"), toml.TOML("token.access_ttl_minutes", configFile)),
		},
		&cli.IntFlag{
			Name:    "refresh-ttl-days",
			Value:   30,
			Usage:   "Refresh token lifetime in days",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REFRESH_TTL_DAYS"), toml.TOML("token.refresh_ttl_days", configFile)),
		},
		&cli.IntFlag{
			Name:    "extended-refresh-ttl-days",
			Value:   90,
			Usage:   "Refresh token lifetime in days for 'stay logged in'",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EXTENDED_REFRESH_TTL_DAYS"), toml.TOML("token.extended_refresh_ttl_days", configFile)),
		},
		&cli.IntFlag{
			Name:    "code-ttl-hours",
			Value:   24,
			Usage:   "Verification code validity in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CODE_TTL_HOURS"), toml.TOML("verification.code_ttl_hours", configFile)),
		},
		&cli.IntFlag{
			Name:    "resend-cooldown-seconds",
			Value:   60,
			Usage:   "Minimum seconds between code resends",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESEND_COOLDOWN_SECONDS"), toml.TOML("verification.resend_cooldown_seconds", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP host (empty: log outgoing mail instead of sending)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "auto",
			Usage:   "TLS mode (auto, off, acme, selfsigned, manual)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-dir",
			Value:   "./data/certs",
			Usage:   "Directory for generated and ACME certificates",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_DIR"), toml.TOML("tls.cert_dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Certificate file for manual TLS mode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Key file for manual TLS mode",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-email",
			Usage:   "Account email for ACME certificate issuance",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_EMAIL"), toml.TOML("tls.email", configFile)),
		},
	}
}
