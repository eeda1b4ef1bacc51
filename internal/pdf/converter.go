package pdf

import (
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/facturkit/facturkit/internal/apperr"
)

// ArchivalConverter rewrites a PDF into an optimized, archival-oriented
// form as the first pipeline step.
type ArchivalConverter struct {
	conf *pdfcpu.Configuration
}

// NewArchivalConverter builds a converter with a default pdfcpu
// configuration.
func NewArchivalConverter() *ArchivalConverter {
	return &ArchivalConverter{conf: pdfcpu.NewDefaultConfiguration()}
}

// ConvertToArchival writes the converted file next to the input and returns
// its path.
func (c *ArchivalConverter) ConvertToArchival(inputPath string) (string, error) {
	outputPath := filepath.Join(filepath.Dir(inputPath), "archival_"+filepath.Base(inputPath))
	if err := api.OptimizeFile(inputPath, outputPath, c.conf); err != nil {
		return "", apperr.Wrap(apperr.KindConversion, "PDF conversion failed", err)
	}
	return outputPath, nil
}
