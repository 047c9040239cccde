package server

import (
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskline/internal/engine"
	"taskline/internal/report"
)

// registerExport serves the task listing as CSV. It sits on the router
// directly since the body is not JSON.
func registerExport(r chi.Router, basePath string, h handlers) {
	r.Get(path.Join(basePath, "tasks/export.csv"), func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		if authErr, ok := h.requireAdmin(ctx, "export tasks"); !ok {
			respondStatusError(w, authErr)
			return
		}
		q := req.URL.Query()
		f := engine.ListFilters{
			Status:   q.Get("status"),
			Priority: q.Get("priority"),
			DateFrom: q.Get("date_from"),
			DateTo:   q.Get("date_to"),
		}
		if raw := q.Get("owner_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "owner_id must be an integer", map[string]any{"field": "owner_id"}))
				return
			}
			f.OwnerID = id
		}
		items, err := h.e.ListAll(ctx, f)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="tasks.csv"`)
		if err := report.WriteTasks(w, items); err != nil {
			h.log.Error("csv export failed", slog.Any("err", err))
		}
	})
}
