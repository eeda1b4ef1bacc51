// Package pdf implements the PDF collaborators of the generation pipeline:
// upload inspection, archival conversion, invoice embedding and conformance
// validation.
package pdf

import (
	"fmt"
	"os"

	ledongthuc "github.com/ledongthuc/pdf"
)

// CountPages verifies that the file at path parses as a PDF and returns its
// page count. Used by the session store to reject broken uploads.
func CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := ledongthuc.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}
