package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memberdesk/memberdesk/internal/importer"
	"github.com/memberdesk/memberdesk/internal/logging"
	"github.com/memberdesk/memberdesk/internal/store"
)

// handleImport accepts a multipart upload and runs the whole pipeline
// synchronously inside the request. The response is the terminal batch
// summary; per-row raw data stays behind the /errors endpoint to keep
// typical responses small.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	opts := importer.Options{
		SkipDuplicates: s.cfg.Import.SkipDuplicates,
		DefaultCountry: s.cfg.Import.DefaultCountry,
	}
	if v := r.FormValue("skip_duplicates"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "skip_duplicates must be a boolean")
			return
		}
		opts.SkipDuplicates = skip
	}
	if v := r.FormValue("default_country"); v != "" {
		opts.DefaultCountry = v
	}

	batch, err := s.service.Import(r.Context(), header.Filename, file, opts)
	if err != nil {
		logFromRequest(r).Error("import failed", "error", err)
		writeError(w, http.StatusInternalServerError, "import could not be recorded")
		return
	}

	status := http.StatusCreated
	if batch.Status == importer.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, batch)
}

// handleBatch returns the batch summary: status, counters and the
// bounded error summary.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	batch, err := s.service.Batch(r.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		logFromRequest(r).Error("get batch failed", "batch_id", batchID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load batch")
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// handleRowErrors returns the full row-error list for a batch,
// including the sanitized raw-row snapshots.
func (s *Server) handleRowErrors(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	rowErrs, err := s.service.RowErrors(r.Context(), batchID)
	if err != nil {
		logFromRequest(r).Error("list row errors failed", "batch_id", batchID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load row errors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batchId": batchID,
		"errors":  rowErrs,
	})
}

// handleTemplate serves the downloadable starter file. format=csv
// (default) or format=xlsx; format=json returns the column
// descriptions structurally.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	tpl := importer.NewTemplate()

	switch r.URL.Query().Get("format") {
	case "", "csv":
		data, err := tpl.CSV()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not render template")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="member_import_template.csv"`)
		_, _ = w.Write(data)

	case "xlsx":
		data, err := tpl.XLSX()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not render template")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="member_import_template.xlsx"`)
		_, _ = w.Write(data)

	case "json":
		writeJSON(w, http.StatusOK, tpl)

	default:
		writeError(w, http.StatusBadRequest, "format must be csv, xlsx or json")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func logFromRequest(r *http.Request) *slog.Logger {
	return logging.FromContext(r.Context())
}
