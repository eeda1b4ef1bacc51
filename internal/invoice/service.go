// Package invoice orchestrates the e-invoice workflow: it drives a session
// through the status state machine and invokes the PDF collaborators.
package invoice

import (
	"errors"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/model"
	"github.com/facturkit/facturkit/internal/session"
)

// Converter rewrites a PDF into its archival form. The returned path may
// equal the input path.
type Converter interface {
	ConvertToArchival(inputPath string) (string, error)
}

// Embedder writes the final artifact to outputPath with the structured
// invoice data embedded.
type Embedder interface {
	Embed(inputPath, outputPath string, meta model.InvoiceMetadata) error
}

// Validator runs the conformance check on a generated artifact. It returns
// an error only when the check itself could not run; a non-conformant but
// parseable document yields a result with Valid=false.
type Validator interface {
	Validate(path string) (model.ValidationResult, error)
}

// Service is the orchestrator over store and collaborators.
type Service struct {
	store          *session.Store
	converter      Converter
	embedder       Embedder
	validator      Validator
	validateOutput bool
	log            *slog.Logger
	now            func() time.Time
}

// NewService wires the orchestrator.
func NewService(store *session.Store, converter Converter, embedder Embedder, validator Validator, validateOutput bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:          store,
		converter:      converter,
		embedder:       embedder,
		validator:      validator,
		validateOutput: validateOutput,
		log:            log,
		now:            time.Now,
	}
}

// Generate runs the full pipeline for a session: archival conversion,
// invoice embedding and (if enabled) conformance validation.
//
// It returns an error only for precondition violations: unknown session or
// a current status other than Uploaded; in that case the store is left
// untouched. Every failure inside the pipeline is absorbed into a persisted
// Failed status which is returned with a nil error.
func (s *Service) Generate(sessionID string, meta model.InvoiceMetadata) (model.Status, error) {
	current, err := s.store.GetOrFail(sessionID)
	if err != nil {
		return nil, err
	}
	uploaded, ok := current.(model.Uploaded)
	if !ok {
		return nil, apperr.InvalidState(
			"invalid status for e-invoice generation", string(current.Kind()))
	}

	meta.Normalize()

	processing := model.Processing{Session: sessionID, At: s.now(), Metadata: meta}
	if err := s.store.Update(sessionID, processing); err != nil {
		return nil, err
	}
	s.log.Info("generation started", "sessionId", sessionID, "invoiceNumber", meta.InvoiceNumber)

	completed, err := s.runPipeline(sessionID, uploaded, meta)
	if err != nil {
		return s.fail(sessionID, err), nil
	}

	if err := s.store.Update(sessionID, completed); err != nil {
		return nil, err
	}
	s.log.Info("generation completed",
		"sessionId", sessionID, "valid", completed.ValidationResult.Valid)
	return completed, nil
}

func (s *Service) runPipeline(sessionID string, uploaded model.Uploaded, meta model.InvoiceMetadata) (model.Completed, error) {
	archivalPath, err := s.converter.ConvertToArchival(uploaded.OriginalPath)
	if err != nil {
		return model.Completed{}, err
	}

	if _, err := s.store.PrepareOutputDir(sessionID); err != nil {
		return model.Completed{}, err
	}
	outputPath := s.store.OutputPath(sessionID)

	if err := s.embedder.Embed(archivalPath, outputPath, meta); err != nil {
		return model.Completed{}, err
	}
	if archivalPath != uploaded.OriginalPath {
		_ = os.Remove(archivalPath)
	}

	result := model.ValidationSkipped()
	if s.validateOutput {
		result, err = s.validator.Validate(outputPath)
		if err != nil {
			return model.Completed{}, err
		}
	}

	return model.Completed{
		Session:          sessionID,
		At:               s.now(),
		OutputPath:       outputPath,
		ValidationResult: result,
		Metadata:         meta,
	}, nil
}

// fail persists and returns a Failed status carrying the error's message
// and detail.
func (s *Service) fail(sessionID string, cause error) model.Failed {
	message := "unexpected error during e-invoice generation"
	detail := cause.Error()
	var e *apperr.Error
	if errors.As(cause, &e) {
		message = e.Message
		detail = e.Detail
	}
	failed := model.Failed{Session: sessionID, At: s.now(), Message: message, Detail: detail}
	if err := s.store.Update(sessionID, failed); err != nil {
		s.log.Error("failed to persist failure status", "sessionId", sessionID, "error", err)
	}
	s.log.Error("generation failed", "sessionId", sessionID, "error", cause)
	return failed
}

// Status returns the current status of a session.
func (s *Service) Status(sessionID string) (model.Status, error) {
	return s.store.GetOrFail(sessionID)
}

// Download reads the generated artifact, marks the session Downloaded and
// returns the bytes together with a download filename. The session must be
// Completed; after the first successful download the precondition no longer
// holds and repeat calls fail.
func (s *Service) Download(sessionID string) ([]byte, string, error) {
	current, err := s.store.GetOrFail(sessionID)
	if err != nil {
		return nil, "", err
	}
	completed, ok := current.(model.Completed)
	if !ok {
		return nil, "", apperr.New(apperr.KindInvalidState,
			"e-invoice is not ready for download", "current status: "+string(current.Kind()))
	}

	data, err := os.ReadFile(completed.OutputPath)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindIO, "generated e-invoice could not be read", err)
	}

	s.markDownloaded(sessionID, completed.OutputPath)
	return data, DownloadFilename(completed.Metadata.InvoiceNumber), nil
}

// markDownloaded transitions Completed to Downloaded. Any other current
// status is left as is; the first transition is authoritative.
func (s *Service) markDownloaded(sessionID, path string) {
	current, ok := s.store.Get(sessionID)
	if !ok {
		return
	}
	if _, isCompleted := current.(model.Completed); !isCompleted {
		return
	}
	downloaded := model.Downloaded{Session: sessionID, At: s.now(), DownloadedPath: path}
	if err := s.store.Update(sessionID, downloaded); err != nil {
		s.log.Error("failed to mark session downloaded", "sessionId", sessionID, "error", err)
		return
	}
	s.log.Info("session downloaded", "sessionId", sessionID)
}

// Cleanup removes the session and its artifacts. Destructive, no undo.
func (s *Service) Cleanup(sessionID string) {
	s.store.Delete(sessionID)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// DownloadFilename derives the served filename from the invoice number.
func DownloadFilename(invoiceNumber string) string {
	if invoiceNumber == "" {
		return "e-invoice.pdf"
	}
	return "e-invoice_" + unsafeFilenameChars.ReplaceAllString(invoiceNumber, "_") + ".pdf"
}
