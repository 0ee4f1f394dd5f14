package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/export"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type updateFieldRequest struct {
	Field string  `json:"field" validate:"required"`
	Value *string `json:"value"`
}

type updateFieldResponse struct {
	Client  *model.Client `json:"client"`
	Changed bool          `json:"changed"`
}

type commentRequest struct {
	Comment string `json:"comment" validate:"required,max=4000"`
}

type listClientsResponse struct {
	Clients []model.Client `json:"clients"`
	Count   int            `json:"count"`
}

func clientFilterFrom(r *http.Request) (store.ClientFilter, error) {
	q := r.URL.Query()
	f := store.ClientFilter{
		SheetID:    q.Get("sheet"),
		LeadStage:  model.LeadStage(q.Get("lead_stage")),
		LeadType:   model.LeadType(q.Get("lead_type")),
		DealStatus: model.DealStatus(q.Get("deal_status")),
		Search:     q.Get("q"),
	}
	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil {
		return f, err
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		return f, err
	}
	f.Limit = min(limit, maxListLimit)
	f.Offset = offset
	return f, nil
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errBadParam
	}
	return n, nil
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	filter, err := clientFilterFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "limit and offset must be non-negative integers", nil)
		return
	}
	clients, err := s.st.ListClients(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, listClientsResponse{Clients: clients, Count: len(clients)})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.st.GetClient(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if c == nil {
		writeError(w, r, http.StatusNotFound, "not_found", "client not found: "+id, nil)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	field, ok := model.ParseField(req.Field)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "validation_error", "unknown field "+strconv.Quote(req.Field), nil)
		return
	}

	c, changed, err := s.svc.Edit(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), field, req.Value)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateFieldResponse{Client: c, Changed: changed})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	c, err := s.svc.Comment(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.st.DeleteClient(r.Context(), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	a := actorFromContext(r.Context())
	zap.L().Info("client deleted", zap.String("client_id", id), zap.String("staff_id", a.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportClients(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	filter, err := clientFilterFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "limit and offset must be non-negative integers", nil)
		return
	}
	// Exports cover the whole filtered list unless a limit is given.
	if r.URL.Query().Get("limit") == "" {
		filter.Limit = 0
	}

	clients, err := s.st.ListClients(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	name := "clients-" + time.Now().UTC().Format("20060102") + "." + string(format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.Write(w, format, clients); err != nil {
		zap.L().Error("export failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
	}
}
