// Package api exposes the query service over HTTP. Every endpoint takes a
// JSON request body and answers with the {"respcd","respmsg","data"}
// envelope existing clients expect.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rpattn/dataql/internal/domain"
	"github.com/rpattn/dataql/internal/export"
	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/query"
	"github.com/rpattn/dataql/internal/repository"
)

const maxBodyBytes = 10 << 20

// Service is the part of query.Service the handlers call.
type Service interface {
	Query(ctx context.Context, req domain.QueryRequest) (*query.Result, error)
	Create(ctx context.Context, req domain.CreateRequest) (repository.InsertResult, error)
	Update(ctx context.Context, req domain.UpdateRequest) (int64, error)
	Meta(ctx context.Context, req domain.MetaRequest) (any, error)
	PageNames() domain.PageNames
}

// Response is the envelope of every JSON answer.
type Response struct {
	Code    string `json:"respcd"`
	Message string `json:"respmsg"`
	Data    any    `json:"data"`
}

// ExportRequest is a query whose rows are rendered as a file.
type ExportRequest struct {
	domain.QueryRequest
	Head     export.Head `json:"head"`
	Format   string      `json:"format"`
	Filename string      `json:"filename"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewHandler routes the endpoints onto service.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	h := &Handler{service: service, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /query", h.handleQuery)
	h.mux.HandleFunc("POST /create", h.handleCreate)
	h.mux.HandleFunc("POST /update", h.handleUpdate)
	h.mux.HandleFunc("POST /meta", h.handleMeta)
	h.mux.HandleFunc("POST /export", h.handleExport)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Response{Code: domain.CodeOK, Data: "ok"})
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Query(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, Response{Code: domain.CodeOK, Data: result.Data(h.service.PageNames())})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, Response{Code: domain.CodeOK, Data: result})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	affected, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, Response{Code: domain.CodeOK, Data: map[string]any{"rows_affected": affected}})
}

func (h *Handler) handleMeta(w http.ResponseWriter, r *http.Request) {
	var req domain.MetaRequest
	if !h.decode(w, r, &req) {
		return
	}
	meta, err := h.service.Meta(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, Response{Code: domain.CodeOK, Data: meta})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !h.decode(w, r, &req) {
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = export.FormatXLSX
	}

	req.Setting.Pagination = false
	req.Setting.One = false
	result, err := h.service.Query(r.Context(), req.QueryRequest)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	head := req.Head
	if len(head) == 0 {
		head = export.HeadFromRows(result.Rows)
	}

	// render first so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := export.Write(&buf, format, head, result.Rows); err != nil {
		h.writeError(w, r, err)
		return
	}
	filename := req.Filename
	if filename == "" {
		filename = req.Object
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", sanitizeFileName(filename), format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// decode reads a JSON body into v, keeping numbers as json.Number. On
// failure the error response is already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(w, r, domain.ParamErrorf("empty request body"))
			return false
		}
		var de *domain.Error
		if errors.As(err, &de) {
			h.writeError(w, r, de)
			return false
		}
		h.writeError(w, r, domain.ParamErrorf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context(), h.logger)
	resp := Response{Code: domain.CodeUnknown, Message: "unknown error", Data: map[string]any{}}
	if de, ok := domain.AsError(err); ok {
		resp.Code = de.Code
		resp.Message = de.Message
		logger.Warn("request failed", "path", r.URL.Path, "kind", de.Kind, "code", de.Code, "error", err)
	} else {
		logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitizeFileName(value string) string {
	value = strings.TrimSpace(value)
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
