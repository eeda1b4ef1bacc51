// Package api is the thin HTTP layer over the session store and the
// orchestrator.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/config"
	"github.com/facturkit/facturkit/internal/invoice"
	"github.com/facturkit/facturkit/internal/model"
	"github.com/facturkit/facturkit/internal/session"
)

// Server hosts the HTTP endpoints.
type Server struct {
	cfg   *config.Config
	store *session.Store
	svc   *invoice.Service
	log   *slog.Logger
}

// New constructs a Server.
func New(cfg *config.Config, store *session.Store, svc *invoice.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, store: store, svc: svc, log: log}
}

// Serve runs the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Routes(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes builds the request multiplexer.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /sessions/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /sessions/{id}", s.handleStatus)
	mux.HandleFunc("GET /sessions/{id}/download", s.handleDownload)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCleanup)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "expecting a multipart file field", err))
		return
	}
	defer file.Close()

	sessionID, err := s.store.Create(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.store.GetOrFail(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, newStatusResponse(status))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var meta model.InvoiceMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid invoice metadata", err))
		return
	}
	meta.Normalize()
	if err := meta.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	status, err := s.svc.Generate(sessionID, meta)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newStatusResponse(status))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newStatusResponse(status))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.svc.Download(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	s.svc.Cleanup(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// statusResponse is the wire form of a Status; the populated fields depend
// on the variant.
type statusResponse struct {
	SessionID   string    `json:"sessionId"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`

	OriginalFilename string `json:"originalFilename,omitempty"`
	FileSize         int64  `json:"fileSize,omitempty"`
	PageCount        int    `json:"pageCount,omitempty"`

	InvoiceNumber    string                  `json:"invoiceNumber,omitempty"`
	ValidationResult *model.ValidationResult `json:"validationResult,omitempty"`

	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorDetail  string `json:"errorDetail,omitempty"`
}

func newStatusResponse(status model.Status) statusResponse {
	resp := statusResponse{
		SessionID:   status.SessionID(),
		Status:      string(status.Kind()),
		Timestamp:   status.Timestamp(),
		Description: model.Describe(status),
	}
	switch st := status.(type) {
	case model.Uploaded:
		resp.OriginalFilename = st.OriginalFilename
		resp.FileSize = st.FileSize
		resp.PageCount = st.PageCount
	case model.Processing:
		resp.InvoiceNumber = st.Metadata.InvoiceNumber
	case model.Completed:
		resp.InvoiceNumber = st.Metadata.InvoiceNumber
		vr := st.ValidationResult
		resp.ValidationResult = &vr
	case model.Failed:
		resp.ErrorMessage = st.Message
		resp.ErrorDetail = st.Detail
	case model.Downloaded:
	default:
		panic("api: unhandled status variant")
	}
	return resp
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Wrap(apperr.KindInternal, "internal error", err)
	}
	s.respondJSON(w, httpStatusFor(e.Kind), errorResponse{
		Kind:    string(e.Kind),
		Message: e.Message,
		Detail:  e.Detail,
	})
}

func httpStatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindSessionNotFound:
		return http.StatusNotFound
	case apperr.KindConversion, apperr.KindGeneration, apperr.KindConformance:
		return http.StatusUnprocessableEntity
	case apperr.KindIO, apperr.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encode json response failed", "error", err)
	}
}
