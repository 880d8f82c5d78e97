package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/category"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/plaid"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

// Config is the typed view of every setting the CLI and API need.
type Config struct {
	Location         *time.Location
	NearingThreshold decimal.Decimal
	CategoryShare    decimal.Decimal
	DayShare         decimal.Decimal
	MerchantShare    decimal.Decimal
	DatabasePath     string
	TimeZone         string
	InboxPath        string
	ServeAddr        string
	Plaid            plaid.Config
	SMSRules         []sms.Rule
	CategoryRules    []category.Rule
	Overlap          time.Duration
	LinkedLookback   time.Duration
	LinkedInterval   time.Duration
	ResolverCacheTTL time.Duration
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/spice/ledger.db")
	v.SetDefault("ledger.timezone", "Asia/Kolkata")
	v.SetDefault("budget.nearing_threshold", "0.8")
	v.SetDefault("advice.category_share", "0.30")
	v.SetDefault("advice.day_share", "0.25")
	v.SetDefault("advice.merchant_share", "0.20")
	v.SetDefault("sms.inbox", "")
	v.SetDefault("sms.overlap", 24*time.Hour)
	v.SetDefault("linked.lookback", 30*24*time.Hour)
	v.SetDefault("linked.interval", 10*time.Second)
	v.SetDefault("category.cache_ttl", 10*time.Minute)
	v.SetDefault("serve.addr", "127.0.0.1:8420")
	v.SetDefault("plaid.environment", "sandbox")
}

// Load reads the configuration from v. Defaults must already be registered.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:     ExpandPath(v.GetString("database.path")),
		TimeZone:         v.GetString("ledger.timezone"),
		InboxPath:        ExpandPath(v.GetString("sms.inbox")),
		ServeAddr:        v.GetString("serve.addr"),
		Overlap:          v.GetDuration("sms.overlap"),
		LinkedLookback:   v.GetDuration("linked.lookback"),
		LinkedInterval:   v.GetDuration("linked.interval"),
		ResolverCacheTTL: v.GetDuration("category.cache_ttl"),
		Plaid: plaid.Config{
			ClientID:    v.GetString("plaid.client_id"),
			Secret:      v.GetString("plaid.secret"),
			Environment: v.GetString("plaid.environment"),
			AccessToken: v.GetString("plaid.access_token"),
		},
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: database.path is required", common.ErrInvalidConfig)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: ledger.timezone %q: %v", common.ErrInvalidConfig, cfg.TimeZone, err)
	}
	cfg.Location = loc

	thresholds := []struct {
		dst *decimal.Decimal
		key string
	}{
		{&cfg.NearingThreshold, "budget.nearing_threshold"},
		{&cfg.CategoryShare, "advice.category_share"},
		{&cfg.DayShare, "advice.day_share"},
		{&cfg.MerchantShare, "advice.merchant_share"},
	}
	for _, th := range thresholds {
		d, err := parseShare(v.GetString(th.key))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidConfig, th.key, err)
		}
		*th.dst = d
	}

	if cfg.Overlap < 0 || cfg.LinkedLookback < 0 || cfg.LinkedInterval < 0 {
		return nil, fmt.Errorf("%w: durations cannot be negative", common.ErrInvalidConfig)
	}

	if err := v.UnmarshalKey("sms.rules", &cfg.SMSRules); err != nil {
		return nil, fmt.Errorf("%w: sms.rules: %v", common.ErrInvalidConfig, err)
	}
	if err := v.UnmarshalKey("category.rules", &cfg.CategoryRules); err != nil {
		return nil, fmt.Errorf("%w: category.rules: %v", common.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// parseShare parses a fraction in (0, 1].
func parseShare(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s is not in (0, 1]", d)
	}
	return d, nil
}

// Aggregate returns the aggregation engine settings.
func (c *Config) Aggregate() aggregate.Config {
	return aggregate.Config{
		Location:         c.Location,
		NearingThreshold: c.NearingThreshold,
		CategoryShare:    c.CategoryShare,
		DayShare:         c.DayShare,
		MerchantShare:    c.MerchantShare,
	}
}

// Ingest returns the ingestion service settings.
func (c *Config) Ingest() ingest.Config {
	cfg := ingest.DefaultConfig(c.Location)
	cfg.Overlap = c.Overlap
	cfg.LinkedLookback = c.LinkedLookback
	cfg.LinkedRate = rate.Every(c.LinkedInterval)
	return cfg
}

// Parser builds the SMS parser from the configured rules, falling back to
// the built-in issuer table when none are configured.
func (c *Config) Parser() (*sms.Parser, error) {
	if len(c.SMSRules) == 0 {
		return sms.NewDefaultParser(), nil
	}
	p, err := sms.NewParser(c.SMSRules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return p, nil
}

// Matcher builds the category rule matcher; configured rules are added to
// the built-in ones.
func (c *Config) Matcher() (*category.Matcher, error) {
	rules := append(category.DefaultRules(), c.CategoryRules...)
	m, err := category.NewMatcher(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return m, nil
}
