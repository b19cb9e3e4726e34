// Package validate checks a merged File Abstract for completeness, format
// problems, and structural integrity, and scores overall confidence.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/quorumtitle/abstractor/internal/abstract"
)

// Result is the outcome of a validation pass.
type Result struct {
	Confidence      float64  `json:"confidence"`
	Warnings        []string `json:"warnings"`
	Errors          []string `json:"errors"`
	ChecksPassed    int      `json:"checks_passed"`
	ChecksFailed    int      `json:"checks_failed"`
	FilledFields    int      `json:"filled_fields"`
	TotalFields     int      `json:"total_fields"`
	CompletionRatio float64  `json:"completion_ratio"`
	MissingFields   []string `json:"missing_fields"`
}

// CanGenerate reports whether document generation is allowed: warnings are
// acceptable, errors are not.
func (r *Result) CanGenerate() bool {
	return len(r.Errors) == 0
}

// AddErrors appends externally produced errors (structural checks, pipeline
// failures) and rescores confidence.
func (r *Result) AddErrors(errs ...string) {
	if len(errs) == 0 {
		return
	}
	r.Errors = append(r.Errors, errs...)
	r.ChecksFailed += len(errs)
	r.Confidence = Confidence(len(r.Warnings), len(r.Errors), r.CompletionRatio)
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Abstract validates a merged abstract. chunksWithData is the number of
// extraction chunks that contributed at least one field; it feeds the
// cross-verification check.
func Abstract(a *abstract.FileAbstract, chunksWithData int) *Result {
	warnings := []string{}
	errors := []string{}
	passed := 0

	filled, total := a.Completion()
	missing := a.MissingFields()
	completionRatio := math.Round(float64(filled)/float64(total)*100) / 100

	if completionRatio < 0.75 {
		errors = append(errors, fmt.Sprintf("File Abstract insufficient — only %d/%d fields filled (%d%%)",
			filled, total, int(math.Round(completionRatio*100))))
	} else if completionRatio < 0.9 {
		warnings = append(warnings, fmt.Sprintf("File Abstract incomplete — %d/%d fields filled (%d%%)",
			filled, total, int(math.Round(completionRatio*100))))
	}

	passed += checkRequired(a, &errors)
	passed += checkFormats(a, &warnings, &errors)
	passed += checkLegalDescriptions(a, &warnings)
	passed += checkCrossVerification(a, chunksWithData, &warnings)
	passed += checkServiceLink(a, &warnings, &errors)

	return &Result{
		Confidence:      Confidence(len(warnings), len(errors), completionRatio),
		Warnings:        warnings,
		Errors:          errors,
		ChecksPassed:    passed,
		ChecksFailed:    len(warnings) + len(errors),
		FilledFields:    filled,
		TotalFields:     total,
		CompletionRatio: completionRatio,
		MissingFields:   missing,
	}
}

func checkRequired(a *abstract.FileAbstract, errors *[]string) int {
	passed := 0
	for _, field := range abstract.RequiredFields {
		if a.Filled(field) {
			passed++
		} else {
			*errors = append(*errors, fmt.Sprintf("Missing required field: %s", field))
		}
	}
	return passed
}

func checkFormats(a *abstract.FileAbstract, warnings, errors *[]string) int {
	passed := 0

	if a.NoteAmount != "" {
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(a.NoteAmount)
		num, err := strconv.ParseFloat(cleaned, 64)
		switch {
		case err != nil:
			*errors = append(*errors, "note_amount is not numeric")
		case num <= 1000:
			*warnings = append(*warnings, fmt.Sprintf("note_amount seems too low: %s", a.NoteAmount))
		case num >= 1_000_000_000:
			*warnings = append(*warnings, fmt.Sprintf("note_amount seems too high: %s", a.NoteAmount))
		default:
			passed++
		}
	}

	if a.DOTInstrumentNumber != "" {
		hasDigit := strings.ContainsAny(a.DOTInstrumentNumber, "0123456789")
		longEnough := len(strings.TrimSpace(a.DOTInstrumentNumber)) >= 5
		if !hasDigit || !longEnough {
			*warnings = append(*warnings, fmt.Sprintf("dot_instrument_number looks invalid: %q", a.DOTInstrumentNumber))
		} else {
			passed++
		}
	}

	for _, field := range abstract.DateFields {
		val, _ := a.Field(field)
		if strings.TrimSpace(val) == "" {
			continue
		}
		lower := strings.ToLower(val)
		if lower == "null" || lower == "unknown" {
			*warnings = append(*warnings, fmt.Sprintf("%s has placeholder value: %q", field, val))
			continue
		}
		if !yearRe.MatchString(val) {
			*warnings = append(*warnings, fmt.Sprintf("%s may not contain a valid year: %q", field, val))
		} else {
			passed++
		}
	}

	// Government ID (SSN, license, passport) is manually entered, 4-15 chars.
	if a.SSN != "" {
		trimmed := strings.TrimSpace(a.SSN)
		if len(trimmed) < 4 || len(trimmed) > 15 {
			*warnings = append(*warnings, fmt.Sprintf("Government ID length invalid (expected 4-15 chars): %q", a.SSN))
		} else {
			passed++
		}
	}

	if a.EIN != "" {
		cleaned := strings.NewReplacer("-", "", " ", "").Replace(a.EIN)
		valid := len(cleaned) == 9
		for _, r := range cleaned {
			if r < '0' || r > '9' {
				valid = false
				break
			}
		}
		if !valid {
			*warnings = append(*warnings, fmt.Sprintf("EIN format invalid (expected 9 digits): %q", a.EIN))
		} else {
			passed++
		}
	}

	return passed
}

func checkLegalDescriptions(a *abstract.FileAbstract, warnings *[]string) int {
	passed := 0

	if a.LegalDescriptionRecording != "" {
		upper := strings.ToUpper(a.LegalDescriptionRecording)
		valid := true
		if !strings.Contains(upper, "COUNTY") {
			*warnings = append(*warnings, `legal_description_recording does not contain "COUNTY"`)
			valid = false
		}
		if !strings.Contains(upper, "SURVEY") && !strings.Contains(upper, "LOT") {
			*warnings = append(*warnings, `legal_description_recording does not contain "SURVEY" or "LOT"`)
			valid = false
		}
		if valid {
			passed++
		}
	}

	if a.LegalDescriptionMetesBounds != "" {
		upper := strings.ToUpper(a.LegalDescriptionMetesBounds)
		if !strings.Contains(upper, "BEGINNING") {
			*warnings = append(*warnings, `legal_description_metes_bounds does not contain "BEGINNING"`)
		} else {
			passed++
		}
	}

	return passed
}

func checkCrossVerification(a *abstract.FileAbstract, chunksWithData int, warnings *[]string) int {
	passed := 0

	// County should appear in at least one legal description.
	if a.County != "" {
		countyCore := strings.ToUpper(a.County)
		countyCore = strings.NewReplacer(" COUNTY", "", "COUNTY", "", ", TEXAS", "", ",TEXAS", "").Replace(countyCore)
		countyCore = strings.TrimSpace(countyCore)

		recording := strings.ToUpper(a.LegalDescriptionRecording)
		metes := strings.ToUpper(a.LegalDescriptionMetesBounds)
		if !strings.Contains(recording, countyCore) && !strings.Contains(metes, countyCore) {
			*warnings = append(*warnings, fmt.Sprintf("County %q not found in legal descriptions", a.County))
		} else {
			passed++
		}
	}

	// Data from multiple chunks corroborates the grantor name.
	if chunksWithData > 1 && a.GrantorName != "" {
		passed++
	}

	return passed
}

func checkServiceLink(a *abstract.FileAbstract, warnings, errors *[]string) int {
	passed := 0

	if a.ServiceLinkTrustees == nil {
		*errors = append(*errors, "ServiceLink trustees missing - this is mandatory")
	} else if len(a.ServiceLinkTrustees) == 0 {
		*errors = append(*errors, "ServiceLink trustees empty - county match failed or ServiceLink PDF missing")
	} else {
		passed++
	}

	if a.SaleLocation != "" {
		upper := strings.ToUpper(a.SaleLocation)
		if !strings.Contains(upper, "COURTHOUSE") && !strings.Contains(upper, "BUILDING") {
			*warnings = append(*warnings, fmt.Sprintf("sale_location may be invalid: %q", a.SaleLocation))
		} else {
			passed++
		}
	}

	if a.ServiceLinkDate != "" {
		if !yearRe.MatchString(a.ServiceLinkDate) {
			*warnings = append(*warnings, fmt.Sprintf("servicelink_date may not contain a valid year: %q", a.ServiceLinkDate))
		} else {
			passed++
		}
	}

	return passed
}

// Confidence scores a validation pass: each warning costs 0.05, each error
// 0.15, scaled by how complete the abstract is.
func Confidence(warnings, errors int, completionRatio float64) float64 {
	confidence := 1.0
	confidence -= float64(warnings) * 0.05
	confidence -= float64(errors) * 0.15
	confidence *= completionRatio
	return math.Round(math.Max(0, confidence)*100) / 100
}

// Structural runs the post-merge structural integrity guards. Violations
// are blocking errors, not warnings.
func Structural(a *abstract.FileAbstract) []string {
	var errors []string

	if len(a.ServiceLinkTrustees) > 25 {
		errors = append(errors, fmt.Sprintf(
			"STRUCTURAL ERROR: Trustee count (%d) exceeds maximum (25) - likely merged multiple counties",
			len(a.ServiceLinkTrustees)))
	}

	if a.LegalDescriptionMetesBounds != "" {
		upper := strings.ToUpper(a.LegalDescriptionMetesBounds)
		if !strings.Contains(upper, "BEGINNING AT") && !strings.Contains(upper, "COMMENCING") {
			errors = append(errors, `STRUCTURAL ERROR: legal_description_metes_bounds does not contain "BEGINNING AT" or "COMMENCING"`)
		}
		if strings.HasPrefix(upper, "SITUATED") {
			errors = append(errors, `STRUCTURAL ERROR: legal_description_metes_bounds incorrectly starts with "SITUATED" - should be in recording field`)
		}
	}

	return errors
}
