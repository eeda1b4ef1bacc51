package pdf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/model"
)

func sampleMetadata() model.InvoiceMetadata {
	return model.InvoiceMetadata{
		InvoiceNumber: "INV-2025-001",
		IssueDate:     model.NewDate(2025, time.March, 14),
		Seller: model.Party{
			Name:    "Seller GmbH",
			Address: model.Address{Street: "Hauptstr. 1", City: "Berlin", PostalCode: "10115", CountryCode: "DE"},
		},
		Buyer: model.Party{
			Name:    "Buyer AG",
			Address: model.Address{Street: "Marktplatz 2", City: "Hamburg", PostalCode: "20095", CountryCode: "DE"},
		},
		Items: []model.LineItem{{
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("100.00"),
			TaxRate:     decimal.NewFromInt(19),
			Unit:        model.UnitHour,
		}},
		Currency: "EUR",
	}
}

func TestCountPagesRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o640))

	_, err := CountPages(path)
	assert.Error(t, err)
}

func TestCountPagesMissingFile(t *testing.T) {
	_, err := CountPages(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestConvertToArchivalFailsOnBrokenInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o640))

	_, err := NewArchivalConverter().ConvertToArchival(path)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConversion))
}

func TestEmbedFailsOnBrokenInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(input, []byte("not a pdf"), 0o640))

	err := NewInvoiceEmbedder().Embed(input, filepath.Join(dir, "out.pdf"), sampleMetadata())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGeneration))
}

func TestValidateMissingFile(t *testing.T) {
	v := NewConformanceValidator("EN16931")

	_, err := v.Validate(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConformance))
}

func TestValidateReportsStructuralFindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o640))

	v := NewConformanceValidator("EN16931")
	result, err := v.Validate(path)
	require.NoError(t, err, "a parseable-but-invalid document is a finding, not an error")

	assert.False(t, result.Valid)
	assert.Equal(t, "EN16931", result.ProfileName)
	require.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, "PDF-STRUCT", result.Errors[0].RuleID)
}
