package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	ierr "github.com/AnserBeg/rent-soft-sub001/internal/errors"
)

type Configuration struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	QuickBooks QuickBooksConfig `mapstructure:"quickbooks" validate:"required"`
	Billing    BillingConfig    `mapstructure:"billing"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// QuickBooksConfig carries per-deployment QuickBooks app credentials and
// endpoint overrides. Client credentials may be empty at startup; operations
// that need them (token refresh, revoke) fail with a configuration error at
// call time instead.
type QuickBooksConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	// Environment selects the API host: "sandbox" or "production".
	Environment  string `mapstructure:"environment" validate:"omitempty,oneof=sandbox production"`
	MinorVersion int    `mapstructure:"minor_version"`
	// Endpoint overrides win over both discovered and default endpoints.
	AuthorizeURLOverride string `mapstructure:"authorize_url"`
	TokenURLOverride     string `mapstructure:"token_url"`
	RevokeURLOverride    string `mapstructure:"revoke_url"`
	WebhookVerifierToken string `mapstructure:"webhook_verifier_token"`
	// DocNumberMode "qbo" lets QuickBooks assign document numbers instead of
	// the deterministic RO-based ones. Idempotency then relies on period keys.
	DocNumberMode string `mapstructure:"doc_number_mode" validate:"omitempty,oneof=local qbo"`
}

type BillingConfig struct {
	// DefaultAnchorDay is used when a tenant has no billing day configured.
	DefaultAnchorDay int `mapstructure:"default_anchor_day" validate:"omitempty,min=1,max=28"`
}

const DefaultMinorVersion = 75

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rentsoft")

	v.SetEnvPrefix("RENTSOFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("quickbooks.environment", "production")
	v.SetDefault("quickbooks.minor_version", DefaultMinorVersion)
	v.SetDefault("quickbooks.doc_number_mode", "local")
	v.SetDefault("billing.default_anchor_day", 1)

	// Config file is optional; env vars alone are a valid deployment.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrConfiguration)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrConfiguration)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid configuration").
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// APIHost returns the QuickBooks resource host for the configured environment.
func (c QuickBooksConfig) APIHost() string {
	if c.Environment == "sandbox" {
		return "https://sandbox-quickbooks.api.intuit.com"
	}
	return "https://quickbooks.api.intuit.com"
}

// APIMinorVersion returns the minorversion query value to send, falling back
// to the default when unset.
func (c QuickBooksConfig) APIMinorVersion() int {
	if c.MinorVersion > 0 {
		return c.MinorVersion
	}
	return DefaultMinorVersion
}

// UseAutoDocNumber reports whether QuickBooks assigns document numbers.
func (c QuickBooksConfig) UseAutoDocNumber() bool {
	return c.DocNumberMode == "qbo"
}
