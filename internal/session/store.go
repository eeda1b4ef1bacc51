// Package session contains the in-memory session store. It is the single
// source of truth for job state and owns each session's on-disk directories.
package session

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/model"
)

const (
	pdfContentType   = "application/pdf"
	originalFilename = "original.pdf"
	outputFilename   = "e-invoice.pdf"
)

// errUploadTooLarge aborts the streaming copy when the ceiling is crossed.
var errUploadTooLarge = errors.New("upload exceeds size limit")

// Inspector checks that a stored upload parses as a PDF and returns its
// page count.
type Inspector func(path string) (int, error)

// Store maps session ids to their current Status under an RWMutex. Each
// entry is replaced wholesale; per-key replacement is atomic, nothing
// stronger is guaranteed across keys.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.Status

	uploadDir      string
	outputDir      string
	maxUploadBytes int64
	inspect        Inspector
	log            *slog.Logger
}

// NewStore constructs a Store rooted at the given directories.
func NewStore(uploadDir, outputDir string, maxUploadBytes int64, inspect Inspector, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions:       make(map[string]model.Status),
		uploadDir:      uploadDir,
		outputDir:      outputDir,
		maxUploadBytes: maxUploadBytes,
		inspect:        inspect,
		log:            log,
	}
}

// Create allocates a fresh session, persists the uploaded bytes into the
// session's upload directory and records an Uploaded status. The upload is
// rejected when empty, over the configured ceiling, not application/pdf, or
// not parseable as a PDF.
func (s *Store) Create(filename, contentType string, r io.Reader) (string, error) {
	if contentType != pdfContentType {
		return "", apperr.New(apperr.KindValidation, "invalid file type",
			"expected "+pdfContentType+", got "+contentType)
	}
	if filename == "" {
		filename = "upload.pdf"
	}

	sessionID := uuid.NewString()
	dir := filepath.Join(s.uploadDir, sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperr.Wrap(apperr.KindIO, "failed to create session directory", err)
	}
	target := filepath.Join(dir, originalFilename)

	written, err := s.writeUpload(target, r)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}

	pages := 0
	if s.inspect != nil {
		pages, err = s.inspect(target)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", apperr.Wrap(apperr.KindValidation, "file is not a readable PDF", err)
		}
	}

	status := model.Uploaded{
		Session:          sessionID,
		At:               time.Now(),
		OriginalPath:     target,
		OriginalFilename: filename,
		FileSize:         written,
		PageCount:        pages,
	}

	s.mu.Lock()
	s.sessions[sessionID] = status
	s.mu.Unlock()

	s.log.Info("session created",
		"sessionId", sessionID, "filename", filename, "bytes", written, "pages", pages)
	return sessionID, nil
}

func (s *Store) writeUpload(target string, r io.Reader) (int64, error) {
	dst, err := os.Create(target)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindIO, "failed to store uploaded file", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, &limitedReader{r: r, remaining: s.maxUploadBytes})
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return 0, apperr.New(apperr.KindValidation, "file is too large",
				"upload exceeds the configured size limit")
		}
		return 0, apperr.Wrap(apperr.KindIO, "failed to store uploaded file", err)
	}
	if written == 0 {
		return 0, apperr.New(apperr.KindValidation, "no file uploaded", "the upload was empty")
	}
	return written, nil
}

// Get returns the current status of a session.
func (s *Store) Get(sessionID string) (model.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.sessions[sessionID]
	return status, ok
}

// GetOrFail returns the current status or a session-not-found error.
func (s *Store) GetOrFail(sessionID string) (model.Status, error) {
	if status, ok := s.Get(sessionID); ok {
		return status, nil
	}
	return nil, apperr.SessionNotFound(sessionID)
}

// Update replaces the stored status wholesale. It never creates a session.
func (s *Store) Update(sessionID string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return apperr.SessionNotFound(sessionID)
	}
	s.sessions[sessionID] = status
	s.log.Debug("session status updated", "sessionId", sessionID, "status", status.Kind())
	return nil
}

// Delete removes the session entry and its on-disk directories. Artifact
// removal failures are logged; the in-memory entry is removed regardless.
// Deleting an unknown session is a no-op.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	_, existed := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	for _, dir := range []string{
		filepath.Join(s.uploadDir, sessionID),
		filepath.Join(s.outputDir, sessionID),
	} {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Error("failed to remove session artifacts",
				"sessionId", sessionID, "dir", dir, "error", err)
		}
	}
	if existed {
		s.log.Info("session deleted", "sessionId", sessionID)
	}
}

// ListIDs returns a snapshot of the currently known session ids.
func (s *Store) ListIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// OriginalPath returns the path of a session's uploaded PDF.
func (s *Store) OriginalPath(sessionID string) string {
	return filepath.Join(s.uploadDir, sessionID, originalFilename)
}

// OutputPath returns the path of a session's generated e-invoice.
func (s *Store) OutputPath(sessionID string) string {
	return filepath.Join(s.outputDir, sessionID, outputFilename)
}

// PrepareOutputDir creates the session's output directory.
func (s *Store) PrepareOutputDir(sessionID string) (string, error) {
	dir := filepath.Join(s.outputDir, sessionID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperr.Wrap(apperr.KindIO, "failed to prepare output directory", err)
	}
	return dir, nil
}

// limitedReader fails the copy once more than remaining bytes were read,
// instead of silently truncating as io.LimitReader would.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errUploadTooLarge
	}
	return n, err
}
