package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/csvimport"
	"github.com/sells-group/estate-crm/internal/model"
)

type importResponse struct {
	DryRun   bool                  `json:"dry_run"`
	Total    int                   `json:"total"`
	Inserted int                   `json:"inserted"`
	Skipped  []int                 `json:"skipped"`
	Mapping  map[string]string     `json:"mapping"`
	Clients  []model.Client        `json:"clients,omitempty"`
	Preview  []model.ClientRecord  `json:"preview,omitempty"`
	Warnings map[model.Field][]int `json:"duplicate_columns,omitempty"`
}

// handleImport accepts a multipart upload with a "file" part (CSV or XLSX)
// and optional form values: sheet_id, has_header, mapping, encoding,
// xlsx_sheet and dry_run.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.imports.Allow() {
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many imports, try again shortly", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.ImportMaxBytes)
	if err := r.ParseMultipartForm(s.cfg.ImportMaxBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_upload", "upload must be multipart form data within the size limit", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_upload", "could not read upload", err.Error())
		return
	}

	rows, err := s.readMatrix(header.Filename, data, r.FormValue("encoding"), r.FormValue("xlsx_sheet"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_upload", err.Error(), nil)
		return
	}
	sess := csvimport.NewSession(s.st, nil)
	sess.Load(rows)
	if v := r.FormValue("has_header"); v != "" {
		hasHeader, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validation_error", "has_header must be a boolean", nil)
			return
		}
		sess.SetHasHeader(hasHeader)
	}
	if maxRows := s.importCfg.MaxRows; maxRows > 0 && sess.DataRows() > maxRows {
		writeError(w, r, http.StatusBadRequest, "validation_error",
			"file has "+strconv.Itoa(sess.DataRows())+" rows, the limit is "+strconv.Itoa(maxRows), nil)
		return
	}
	if v := r.FormValue("mapping"); v != "" {
		m, err := csvimport.ParseMapping(v)
		if err != nil {
			writeFailure(w, r, &crm.Error{Kind: crm.KindValidation, Op: "import", Err: err})
			return
		}
		sess.ReplaceMapping(m)
	}
	if v := strings.TrimSpace(r.FormValue("sheet_id")); v != "" {
		sess.SetSheet(&v)
	}

	resp := importResponse{Mapping: mappingJSON(sess.Mapping())}
	if dups := sess.Mapping().Duplicates(); len(dups) > 0 {
		resp.Warnings = dups
	}

	batch := sess.Preview()
	resp.Total = batch.Total
	resp.Skipped = batch.Skipped
	if resp.Skipped == nil {
		resp.Skipped = []int{}
	}

	if dry, _ := strconv.ParseBool(r.FormValue("dry_run")); dry {
		resp.DryRun = true
		resp.Preview = batch.Records
		writeJSON(w, http.StatusOK, resp)
		return
	}

	inserted, err := sess.Commit(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp.Inserted = len(inserted)
	resp.Clients = inserted
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) readMatrix(name string, data []byte, encoding, sheet string) ([][]string, error) {
	if csvimport.IsXLSX(name) {
		return csvimport.ReadXLSXBinary(data, sheet)
	}
	if encoding == "" {
		encoding = s.importCfg.DefaultEncoding
	}
	text, err := csvimport.Decode(bytes.NewReader(data), encoding)
	if err != nil {
		return nil, err
	}
	return csvimport.Tokenize(text), nil
}

func mappingJSON(m csvimport.Mapping) map[string]string {
	out := make(map[string]string, len(m))
	for col, f := range m {
		out[strconv.Itoa(col)] = string(f)
	}
	return out
}
