package module

import (
	"time"

	"ledgerlens/internal/platform/config"
)

// Options holds configuration settings for the export module
type Options struct {
	CSVDir     string
	PG         bool
	CH         bool
	CHTable    string
	MaxRetries int
	RetryBase  time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	ef := cfg.Prefix("EXPORT_")
	return Options{
		CSVDir:     ef.MayString("CSV_DIR", ""),
		PG:         ef.MayBool("PG", false),
		CH:         ef.MayBool("CH", false),
		CHTable:    ef.MayString("CH_TABLE", "customer_features"),
		MaxRetries: ef.MayInt("PG_MAX_RETRIES", 3),
		RetryBase:  ef.MayDuration("PG_RETRY_BASE", 500*time.Millisecond),
	}
}
