package pdf

import (
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/facturx"
	"github.com/facturkit/facturkit/internal/model"
)

// InvoiceEmbedder produces the final artifact: the archival PDF with the
// cross-industry-invoice XML attached as factur-x.xml.
type InvoiceEmbedder struct {
	conf *pdfcpu.Configuration
}

// NewInvoiceEmbedder builds an embedder with a default pdfcpu
// configuration.
func NewInvoiceEmbedder() *InvoiceEmbedder {
	return &InvoiceEmbedder{conf: pdfcpu.NewDefaultConfiguration()}
}

// Embed writes outputPath from inputPath with the invoice XML embedded.
func (e *InvoiceEmbedder) Embed(inputPath, outputPath string, meta model.InvoiceMetadata) error {
	xmlBytes, err := facturx.Build(meta)
	if err != nil {
		return apperr.Wrap(apperr.KindGeneration, "e-invoice generation failed", err)
	}

	xmlPath := filepath.Join(filepath.Dir(outputPath), facturx.AttachmentName)
	if err := os.WriteFile(xmlPath, xmlBytes, 0o640); err != nil {
		return apperr.Wrap(apperr.KindIO, "failed to write invoice XML", err)
	}
	defer os.Remove(xmlPath)

	if err := api.AddAttachmentsFile(inputPath, outputPath, []string{xmlPath}, false, e.conf); err != nil {
		return apperr.Wrap(apperr.KindGeneration, "e-invoice generation failed", err)
	}
	return nil
}
