package module

import "ledgerlens/internal/platform/config"

// defaultAdminCodes are the non-product codes the source dataset documents
var defaultAdminCodes = []string{"POST", "DOT", "M", "BANK CHARGES", "PADS", "C2"}

// Options holds configuration settings for the pipeline module
type Options struct {
	AdminCodePatterns       []string
	TreatUnmatchedAsProduct bool
	DigitlessAsAdmin        bool
	HasHeader               bool
	Progress                bool
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	pf := cfg.Prefix("LEDGER_")
	unmatched := pf.MayBool("UNMATCHED_AS_PRODUCT", false)
	return Options{
		AdminCodePatterns:       pf.MayCSV("ADMIN_CODES", defaultAdminCodes),
		TreatUnmatchedAsProduct: unmatched,
		DigitlessAsAdmin:        pf.MayBool("DIGITLESS_AS_ADMIN", !unmatched),
		HasHeader:               pf.MayBool("HAS_HEADER", true),
		Progress:                pf.MayBool("PROGRESS", true),
	}
}
