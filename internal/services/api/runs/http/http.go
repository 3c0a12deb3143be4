// Package http provides http transport for the runs api
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ledgerlens/internal/modkit/httpkit"
	"ledgerlens/internal/services/api/runs/domain"
	svc "ledgerlens/internal/services/api/runs/service"
)

// Register mounts the runs endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// run listing, GET takes query params and POST takes a validated body
	httpkit.Get(r, "/", h.list)
	httpkit.PostJSON[domain.ListInput](r, "/query", h.listQuery)

	httpkit.Get(r, "/{run_id}", h.get)
	r.Get("/{run_id}/features", httpkit.Handle(h.features))
	httpkit.Get(r, "/{run_id}/retention", h.retention)
	httpkit.PostJSON[domain.RetentionQueryInput](r, "/{run_id}/retention/query", h.retentionQuery)
	httpkit.Get(r, "/{run_id}/churn", h.churn)
	httpkit.Get(r, "/{run_id}/countries", h.countries)
}

type handlers struct{ svc svc.Service }

func runID(r *stdhttp.Request) string { return chi.URLParam(r, "run_id") }

// intParam reads a non negative int query param with a fallback
func intParam(r *stdhttp.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (h *handlers) list(r *stdhttp.Request) (any, error) {
	in := domain.ListInput{
		Since: r.URL.Query().Get("since"),
		Limit: intParam(r, "limit", 0),
	}
	return h.svc.List(r.Context(), in)
}

func (h *handlers) listQuery(r *stdhttp.Request, in domain.ListInput) (any, error) {
	return h.svc.List(r.Context(), in)
}

func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), runID(r))
}

func (h *handlers) features(r *stdhttp.Request) httpkit.Response {
	page := domain.PageOpts{
		Limit:  intParam(r, "limit", 0),
		Offset: intParam(r, "offset", 0),
	}
	out, err := h.svc.Features(r.Context(), runID(r), page)
	if err != nil {
		return httpkit.Error(err)
	}
	limit := page.Limit
	if limit <= 0 {
		limit = len(out.Items)
	}
	pageNum := 1
	if limit > 0 {
		pageNum = page.Offset/limit + 1
	}
	return httpkit.List(out.Items, out.Total, pageNum, limit, "")
}

func (h *handlers) retention(r *stdhttp.Request) (any, error) {
	return h.svc.Retention(r.Context(), runID(r))
}

func (h *handlers) retentionQuery(r *stdhttp.Request, in domain.RetentionQueryInput) (any, error) {
	return h.svc.RetentionForCohort(r.Context(), runID(r), in)
}

func (h *handlers) churn(r *stdhttp.Request) (any, error) {
	return h.svc.Churn(r.Context(), runID(r))
}

func (h *handlers) countries(r *stdhttp.Request) (any, error) {
	return h.svc.Countries(r.Context(), runID(r))
}
