package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

var errBadParam = eris.New("server: invalid query parameter")

type sheetRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ActivityFilter{
		ClientID: q.Get("client_id"),
		StaffID:  q.Get("staff_id"),
		SheetID:  q.Get("sheet"),
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validation_error", "since must be an RFC 3339 timestamp", nil)
			return
		}
		filter.Since = t
	}
	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
		return
	}
	filter.Limit = min(limit, maxListLimit)

	entries, err := s.st.ListActivity(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries, "count": len(entries)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	lookback, err := intParam(r.URL.Query().Get("lookback_hours"), s.lookback)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "lookback_hours must be a non-negative integer", nil)
		return
	}
	snap, err := s.collector.Collect(r.Context(), r.URL.Query().Get("sheet"), lookback)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.st.ListSheets(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if sheets == nil {
		sheets = []model.Sheet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

func (s *Server) handleUpsertSheet(w http.ResponseWriter, r *http.Request) {
	var req sheetRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	sheet := model.Sheet{ID: chi.URLParam(r, "id"), Name: req.Name}
	if err := s.st.UpsertSheet(r.Context(), sheet); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}
