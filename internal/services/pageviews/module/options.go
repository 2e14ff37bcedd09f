package module

import (
	"time"

	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/filter"
	"pageviews/internal/platform/config"
	dom "pageviews/internal/services/pageviews/domain"
)

// Options holds configuration settings for the pageviews module
type Options struct {
	BatchSize     int           `validate:"min=1"`
	HTTPTimeout   time.Duration `validate:"min=0"`
	UserAgent     string
	BaseURL       string `validate:"required,url"`
	CacheDir      string
	CacheMaxAge   time.Duration `validate:"min=0"`
	CacheMaxBytes int64         `validate:"min=0"`
	Unquote       bool
	Compression   string `validate:"omitempty,oneof=zstd snappy none"`

	ClickHouse ClickHouseOptions

	// Filter holds defaults from PV_FILTER_*; command line flags override them
	Filter filter.Config
}

// ClickHouseOptions configures the optional ClickHouse sink
type ClickHouseOptions struct {
	DSN         string
	Table       string
	CreateTable bool
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	pv := cfg.Prefix("PV_")
	chc := pv.Prefix("CLICKHOUSE_")
	fc := pv.Prefix("FILTER_")
	return Options{
		BatchSize:     pv.MayInt("BATCH_SIZE", dom.DefaultBatchSize),
		HTTPTimeout:   pv.MayDuration("HTTP_TIMEOUT", 0),
		UserAgent:     pv.MayString("USER_AGENT", dumps.DefaultUserAgent),
		BaseURL:       pv.MayString("DUMPS_BASE_URL", dumps.DefaultBaseURL),
		CacheDir:      pv.MayString("CACHE_DIR", ""),
		CacheMaxAge:   pv.MayDuration("CACHE_MAX_AGE", 0),
		CacheMaxBytes: pv.MayInt64("CACHE_MAX_BYTES", 0),
		Unquote:       pv.MayBool("UNQUOTE_TITLES", false),
		Compression:   pv.MayEnum("PARQUET_COMPRESSION", "zstd", "zstd", "snappy", "none"),
		ClickHouse: ClickHouseOptions{
			DSN:         chc.MayString("DSN", ""),
			Table:       chc.MayString("TABLE", "pageviews_hourly"),
			CreateTable: chc.MayBool("CREATE_TABLE", false),
		},
		Filter: filter.Config{
			LineRegex:   fc.MayString("LINE_REGEX", ""),
			PageTitle:   fc.MayString("PAGE_TITLE", ""),
			DomainCodes: fc.MayCSV("DOMAIN_CODES", nil),
			MinViews:    fc.MayUint32("MIN_VIEWS"),
			MaxViews:    fc.MayUint32("MAX_VIEWS"),
			Languages:   fc.MayCSV("LANGUAGES", nil),
			Domains:     fc.MayCSV("DOMAINS", nil),
			Mobile:      fc.MayBoolPtr("MOBILE"),
		},
	}
}
