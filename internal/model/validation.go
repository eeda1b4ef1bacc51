package model

// ValidationResult is the outcome of a conformance check of the generated
// artifact.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	ProfileName string              `json:"profileName"`
	Errors      []ValidationError   `json:"errors,omitempty"`
	Warnings    []ValidationWarning `json:"warnings,omitempty"`
	ElapsedMs   int64               `json:"elapsedMs"`
}

// ValidationError is a single conformance violation.
type ValidationError struct {
	RuleID        string `json:"ruleId"`
	Specification string `json:"specification,omitempty"`
	Clause        string `json:"clause,omitempty"`
	Description   string `json:"description"`
	Context       string `json:"context,omitempty"`
}

// ValidationWarning is a non-fatal conformance finding.
type ValidationWarning struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}

// ValidationSuccess builds a passing result.
func ValidationSuccess(profileName string, elapsedMs int64) ValidationResult {
	return ValidationResult{Valid: true, ProfileName: profileName, ElapsedMs: elapsedMs}
}

// ValidationFailure builds a failing result carrying the findings.
func ValidationFailure(profileName string, errs []ValidationError, warns []ValidationWarning, elapsedMs int64) ValidationResult {
	return ValidationResult{
		Valid:       false,
		ProfileName: profileName,
		Errors:      errs,
		Warnings:    warns,
		ElapsedMs:   elapsedMs,
	}
}

// ValidationSkipped marks validation as disabled by configuration.
func ValidationSkipped() ValidationResult {
	return ValidationResult{Valid: true, ProfileName: "Skipped"}
}

// HasWarnings reports whether any warnings were recorded.
func (v ValidationResult) HasWarnings() bool { return len(v.Warnings) > 0 }

// ErrorCount returns the number of violations.
func (v ValidationResult) ErrorCount() int { return len(v.Errors) }

// WarningCount returns the number of warnings.
func (v ValidationResult) WarningCount() int { return len(v.Warnings) }
