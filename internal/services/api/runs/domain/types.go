// Package domain holds DTOs for the runs http and service contracts
package domain

import "time"

// PageOpts defines pagination options for feature listings
type PageOpts struct {
	Limit  int `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
	Offset int `json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// ListInput filters the run listing
type ListInput struct {
	// Since keeps runs whose as_of falls on or after this day
	Since string `json:"since,omitempty" validate:"omitempty,date" example:"2011-01-01"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=200" example:"50"`
}

// RetentionQueryInput selects one cohort out of a run's retention matrix
type RetentionQueryInput struct {
	Month     string `json:"month" validate:"required,month" example:"2011-01"`
	MaxOffset int    `json:"max_offset,omitempty" validate:"omitempty,min=0,max=120" example:"12"`
}

// RunSummary is one analysis run as stored by the export sink
type RunSummary struct {
	RunID               string    `json:"run_id"`
	AsOf                time.Time `json:"as_of"`
	WindowStart         time.Time `json:"window_start"`
	WindowEnd           time.Time `json:"window_end"`
	RecordsLoaded       int       `json:"records_loaded"`
	Rejected            int       `json:"rejected"`
	DuplicatesCollapsed int       `json:"duplicates_collapsed"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
}

// FeatureRow is the per customer feature and score row
// money fields are decimal strings so no float drift leaks into clients
type FeatureRow struct {
	CustomerID      string    `json:"customer_id"`
	FirstPurchaseAt time.Time `json:"first_purchase_at"`
	LastPurchaseAt  time.Time `json:"last_purchase_at"`
	RecencyDays     int       `json:"recency_days"`
	Frequency       int       `json:"frequency"`
	MonetaryTotal   string    `json:"monetary_total"`
	ReturnCount     int       `json:"return_count"`
	ReturnValue     string    `json:"return_value"`
	NetRevenue      string    `json:"net_revenue"`
	RScore          int       `json:"r_score"`
	FScore          int       `json:"f_score"`
	MScore          int       `json:"m_score"`
	Segment         string    `json:"segment"`
	Bucket          string    `json:"bucket"`
}

// RetentionCell is one (cohort, offset) observation
type RetentionCell struct {
	CohortMonth string  `json:"cohort_month" example:"2011-01"`
	Offset      int     `json:"offset"`
	Size        int     `json:"size"`
	Active      int     `json:"active"`
	Retention   float64 `json:"retention"`
}

// ChurnRow is one labeled customer from the run's temporal split
type ChurnRow struct {
	CustomerID     string `json:"customer_id"`
	Churned        bool   `json:"churned"`
	OutcomeRevenue string `json:"outcome_revenue"`
}

// CountryRow is one country rollup line
type CountryRow struct {
	Country   string `json:"country"`
	Customers int    `json:"customers"`
	Revenue   string `json:"revenue"`
}

// FeaturePage is a feature listing slice plus the run total
type FeaturePage struct {
	Items []FeatureRow `json:"items"`
	Total int          `json:"total"`
}
