package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "ledgerlens/internal/platform/errors"
)

type cohortQuery struct {
	Month     string `json:"month"      validate:"required,month"`
	MaxOffset int    `json:"max_offset" validate:"min=0,max=120"`
}

func postJSON(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/cohorts/query", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestParseJSONValid(t *testing.T) {
	got, err := ParseJSON[cohortQuery](postJSON(`{"month":"2011-03","max_offset":12}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.Month != "2011-03" || got.MaxOffset != 12 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestParseJSONRejectsBadMonth(t *testing.T) {
	_, err := ParseJSON[cohortQuery](postJSON(`{"month":"2011-3"}`))
	if err == nil {
		t.Fatal("want validation error")
	}
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("want validation code, got %v", err)
	}
	if !strings.Contains(err.Error(), "month") {
		t.Fatalf("message should name the json field: %v", err)
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	_, err := ParseJSON[cohortQuery](postJSON(`{"month":"2011-03","nope":1}`))
	if err == nil {
		t.Fatal("want error for unknown field")
	}
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want json code, got %v", err)
	}
}

func TestParseJSONRejectsEmptyBody(t *testing.T) {
	_, err := ParseJSON[cohortQuery](postJSON(""))
	if err == nil {
		t.Fatal("want error for empty POST body")
	}
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	_, err := ParseJSON[cohortQuery](postJSON(`{"month":"2011-03"}{"month":"2011-04"}`))
	if err == nil {
		t.Fatal("want error for trailing data")
	}
}

func TestParseJSONEmptyBodyOKForGet(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/cohorts", strings.NewReader(""))
	got, err := ParseJSON[cohortQuery](r)
	if err != nil {
		t.Fatalf("GET with empty body should bind zero value: %v", err)
	}
	if got.Month != "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestDateTag(t *testing.T) {
	type q struct {
		Cutoff string `json:"cutoff" validate:"required,date"`
	}
	if _, err := ParseJSON[q](postJSON(`{"cutoff":"2011-09-01"}`)); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	if _, err := ParseJSON[q](postJSON(`{"cutoff":"09/01/2011"}`)); err == nil {
		t.Fatal("want error for non ISO date")
	}
}
