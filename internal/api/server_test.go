package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturkit/facturkit/internal/config"
	"github.com/facturkit/facturkit/internal/invoice"
	"github.com/facturkit/facturkit/internal/model"
	"github.com/facturkit/facturkit/internal/session"
)

const metadataJSON = `{
	"invoiceNumber": "INV-2025-001",
	"issueDate": "2025-03-14",
	"seller": {
		"name": "Seller GmbH",
		"address": {"street": "Hauptstr. 1", "city": "Berlin", "postalCode": "10115", "countryCode": "de"}
	},
	"buyer": {
		"name": "Buyer AG",
		"address": {"street": "Marktplatz 2", "city": "Hamburg", "postalCode": "20095", "countryCode": "DE"}
	},
	"items": [
		{"description": "Consulting", "quantity": "2", "unitPrice": "100.00", "taxRate": "19", "unit": "HUR"}
	],
	"currency": "EUR"
}`

type stubConverter struct{}

func (stubConverter) ConvertToArchival(inputPath string) (string, error) { return inputPath, nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(inputPath, outputPath string, meta model.InvoiceMetadata) error {
	return os.WriteFile(outputPath, []byte("%PDF-1.7 generated"), 0o640)
}

type stubValidator struct{}

func (stubValidator) Validate(path string) (model.ValidationResult, error) {
	return model.ValidationSuccess("EN16931", 2), nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		UploadDir:      t.TempDir(),
		OutputDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		Profile:        "EN16931",
		ValidateOutput: true,
	}
	store := session.NewStore(cfg.UploadDir, cfg.OutputDir, cfg.MaxUploadBytes,
		func(string) (int, error) { return 1, nil }, log)
	svc := invoice.NewService(store, stubConverter{}, stubEmbedder{}, stubValidator{}, cfg.ValidateOutput, log)
	return New(cfg, store, svc, log).Routes()
}

func multipartUpload(t *testing.T, filename, contentType, body string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadSession(t *testing.T, h http.Handler) string {
	t.Helper()
	body, contentType := multipartUpload(t, "invoice.pdf", "application/pdf", "%PDF-1.7 body")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id, _ := resp["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUpload(t *testing.T) {
	h := newTestServer(t)

	body, contentType := multipartUpload(t, "invoice.pdf", "application/pdf", "%PDF-1.7 body")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "uploaded", resp["status"])
	assert.Equal(t, "invoice.pdf", resp["originalFilename"])
	assert.EqualValues(t, 1, resp["pageCount"])
}

func TestUploadRejectsWrongContentType(t *testing.T) {
	h := newTestServer(t)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "hello")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILURE", resp["kind"])
}

func TestUploadWithoutFileField(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateFlow(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/generate", strings.NewReader(metadataJSON))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["status"])
	assert.Equal(t, "INV-2025-001", resp["invoiceNumber"])
	require.NotNil(t, resp["validationResult"])
	assert.Equal(t, true, resp["validationResult"].(map[string]any)["valid"])
}

func TestGenerateRejectsInvalidMetadata(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/generate", strings.NewReader(`{"items": []}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The session must still be usable afterwards.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "uploaded", resp["status"])
}

func TestGenerateUnknownSession(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/generate", strings.NewReader(metadataJSON))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateTwiceConflicts(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/generate", strings.NewReader(metadataJSON)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/generate", strings.NewReader(metadataJSON)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusUnknownSession(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadFlow(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/generate", strings.NewReader(metadataJSON)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/download", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="e-invoice_INV-2025-001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 generated", rec.Body.String())

	// A repeat download must be refused.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadBeforeGeneration(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id+"/download", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCleanup(t *testing.T) {
	h := newTestServer(t)
	id := uploadSession(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Cleanup of an unknown session is still a 204.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
