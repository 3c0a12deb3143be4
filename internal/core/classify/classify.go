// Package classify labels validated ledger records as sale, return, or
// administrative line items
package classify

import (
	"strings"

	"ledgerlens/internal/core/ledger"
	perr "ledgerlens/internal/platform/errors"
)

// Config controls administrative-code detection. The pattern set is
// business-specific and always supplied by the caller, never guessed here.
type Config struct {
	// AdminCodePatterns are product-code patterns that denote non-product
	// charges (postage, fees, adjustments). A trailing '*' matches any suffix;
	// matching is case-insensitive otherwise exact.
	AdminCodePatterns []string

	// TreatUnmatchedAsProduct keeps unmatched codes as real products
	TreatUnmatchedAsProduct bool

	// DigitlessAsAdmin additionally classifies unmatched codes without any
	// digit as administrative (manual-adjustment markers like "M" or
	// "BANK CHARGES"). This is a shape heuristic, so it is opt-in; it cannot
	// be combined with TreatUnmatchedAsProduct.
	DigitlessAsAdmin bool
}

// Record is a classified ledger record; classification is pure and total over
// valid records
type Record struct {
	ledger.TransactionRecord

	IsReturn bool
	IsAdmin  bool
	IsGuest  bool
}

// Classifier applies a fixed Config to records
type Classifier struct {
	exact     map[string]struct{}
	prefixes  []string
	digitless bool // unmatched digit-free codes classify admin
}

// New builds a Classifier; a config under which no code could ever classify
// administrative is an error because every charge would silently pass as a
// product
func New(cfg Config) (*Classifier, error) {
	if cfg.DigitlessAsAdmin && cfg.TreatUnmatchedAsProduct {
		return nil, perr.Configf("classify: digitless heuristic conflicts with treating unmatched codes as products")
	}
	if len(cfg.AdminCodePatterns) == 0 && !cfg.DigitlessAsAdmin {
		return nil, perr.Configf("classify: empty admin pattern set and no digitless heuristic")
	}
	c := &Classifier{
		exact:     make(map[string]struct{}, len(cfg.AdminCodePatterns)),
		digitless: cfg.DigitlessAsAdmin,
	}
	for _, p := range cfg.AdminCodePatterns {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			c.prefixes = append(c.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		c.exact[p] = struct{}{}
	}
	return c, nil
}

// Classify labels a single record; deterministic, no error conditions
func (c *Classifier) Classify(r ledger.TransactionRecord) Record {
	return Record{
		TransactionRecord: r,
		IsReturn:          r.IsReturn(),
		IsAdmin:           c.isAdmin(r.ProductCode),
		IsGuest:           r.IsGuest(),
	}
}

// ClassifyAll labels every record preserving input order
func (c *Classifier) ClassifyAll(recs []ledger.TransactionRecord) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = c.Classify(r)
	}
	return out
}

func (c *Classifier) isAdmin(code string) bool {
	up := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := c.exact[up]; ok {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(up, p) {
			return true
		}
	}
	if c.digitless {
		return !strings.ContainsAny(up, "0123456789")
	}
	return false
}
