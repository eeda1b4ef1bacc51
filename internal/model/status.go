// Package model contains the processing status union and the invoice data
// types shared across packages.
package model

import (
	"fmt"
	"time"
)

// StatusKind names a status variant.
type StatusKind string

const (
	KindUploaded   StatusKind = "uploaded"
	KindProcessing StatusKind = "processing"
	KindCompleted  StatusKind = "completed"
	KindFailed     StatusKind = "failed"
	KindDownloaded StatusKind = "downloaded"
)

// Status is the closed set of processing states. Exactly five types
// implement it: Uploaded, Processing, Completed, Failed and Downloaded.
// A session holds exactly one Status at any instant; the store replaces it
// wholesale on every transition.
type Status interface {
	// SessionID returns the session this status belongs to.
	SessionID() string
	// Timestamp returns the instant of the last transition. It is
	// monotonically non-decreasing over a session's lifetime.
	Timestamp() time.Time
	// Kind returns the variant name.
	Kind() StatusKind

	sealed()
}

// Uploaded: the PDF is stored, awaiting metadata.
type Uploaded struct {
	Session          string
	At               time.Time
	OriginalPath     string
	OriginalFilename string
	FileSize         int64
	PageCount        int
}

// Processing: generation is in flight.
type Processing struct {
	Session  string
	At       time.Time
	Metadata InvoiceMetadata
}

// Completed: the e-invoice is ready for download.
type Completed struct {
	Session          string
	At               time.Time
	OutputPath       string
	ValidationResult ValidationResult
	Metadata         InvoiceMetadata
}

// Failed: terminal failure. Message is operator-facing, Detail carries the
// lower-level error text verbatim.
type Failed struct {
	Session string
	At      time.Time
	Message string
	Detail  string
}

// Downloaded: the artifact was already delivered.
type Downloaded struct {
	Session        string
	At             time.Time
	DownloadedPath string
}

func (s Uploaded) SessionID() string   { return s.Session }
func (s Processing) SessionID() string { return s.Session }
func (s Completed) SessionID() string  { return s.Session }
func (s Failed) SessionID() string     { return s.Session }
func (s Downloaded) SessionID() string { return s.Session }

func (s Uploaded) Timestamp() time.Time   { return s.At }
func (s Processing) Timestamp() time.Time { return s.At }
func (s Completed) Timestamp() time.Time  { return s.At }
func (s Failed) Timestamp() time.Time     { return s.At }
func (s Downloaded) Timestamp() time.Time { return s.At }

func (Uploaded) Kind() StatusKind   { return KindUploaded }
func (Processing) Kind() StatusKind { return KindProcessing }
func (Completed) Kind() StatusKind  { return KindCompleted }
func (Failed) Kind() StatusKind     { return KindFailed }
func (Downloaded) Kind() StatusKind { return KindDownloaded }

func (Uploaded) sealed()   {}
func (Processing) sealed() {}
func (Completed) sealed()  {}
func (Failed) sealed()     {}
func (Downloaded) sealed() {}

// IsTerminal reports whether no further transition can originate from s.
func IsTerminal(s Status) bool {
	switch s.(type) {
	case Failed, Downloaded:
		return true
	case Uploaded, Processing, Completed:
		return false
	}
	panic(fmt.Sprintf("model: unhandled status %T", s))
}

// CanDownload reports whether the artifact can be served.
func CanDownload(s Status) bool {
	_, ok := s.(Completed)
	return ok
}

// Describe renders a short human description of s.
func Describe(s Status) string {
	switch st := s.(type) {
	case Uploaded:
		return "PDF uploaded: " + st.OriginalFilename
	case Processing:
		return "generation in progress"
	case Completed:
		if st.ValidationResult.Valid {
			return "e-invoice generated"
		}
		return "e-invoice generated (with validation findings)"
	case Failed:
		return "failed: " + st.Message
	case Downloaded:
		return "downloaded"
	}
	panic(fmt.Sprintf("model: unhandled status %T", s))
}
