package pdf

import (
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/facturkit/facturkit/internal/apperr"
	"github.com/facturkit/facturkit/internal/model"
)

// ConformanceValidator checks a generated artifact for structural
// conformance. Findings are reported through the result; an error is
// returned only when the check itself could not run.
type ConformanceValidator struct {
	profile string
	conf    *pdfcpu.Configuration
}

// NewConformanceValidator builds a strict validator reporting under the
// given profile name.
func NewConformanceValidator(profile string) *ConformanceValidator {
	conf := pdfcpu.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpu.ValidationStrict
	return &ConformanceValidator{profile: profile, conf: conf}
}

// Validate runs the conformance check on the file at path.
func (v *ConformanceValidator) Validate(path string) (model.ValidationResult, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		return model.ValidationResult{}, apperr.Wrap(apperr.KindConformance,
			"conformance validation could not run", err)
	}

	err := api.ValidateFile(path, v.conf)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return model.ValidationFailure(v.profile, []model.ValidationError{{
			RuleID:      "PDF-STRUCT",
			Description: err.Error(),
		}}, nil, elapsed), nil
	}
	return model.ValidationSuccess(v.profile, elapsed), nil
}
