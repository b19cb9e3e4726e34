package abstract

import "strings"

// SplitLegalDescription splits a full legal description at "BEGINNING AT":
// everything before goes to the recording field, everything from the phrase
// forward is the metes and bounds. The metes section must never start with
// "SITUATED"; when it would, the whole text stays in recording.
func SplitLegalDescription(fullText string) (recording, metes string) {
	trimmed := strings.TrimSpace(fullText)
	if trimmed == "" {
		return "", ""
	}

	upper := strings.ToUpper(trimmed)
	idx := strings.Index(upper, "BEGINNING AT")
	if idx == -1 {
		return trimmed, ""
	}

	recording = strings.TrimSpace(trimmed[:idx])
	metes = strings.TrimSpace(trimmed[idx:])

	if strings.HasPrefix(strings.ToUpper(metes), "SITUATED") {
		return trimmed, ""
	}
	return recording, metes
}

// ApplyLegalSplit normalizes the two legal description fields after merge.
// It only splits when a field still holds the full unsplit text; two
// separately populated fields are left alone.
func (a *FileAbstract) ApplyLegalSplit() {
	if a.LegalDescriptionRecording != "" &&
		strings.Contains(strings.ToUpper(a.LegalDescriptionRecording), "BEGINNING AT") {
		a.LegalDescriptionRecording, a.LegalDescriptionMetesBounds = SplitLegalDescription(a.LegalDescriptionRecording)
		return
	}
	if a.LegalDescriptionMetesBounds != "" && a.LegalDescriptionRecording == "" {
		if strings.Contains(strings.ToUpper(a.LegalDescriptionMetesBounds), "BEGINNING AT") {
			a.LegalDescriptionRecording, a.LegalDescriptionMetesBounds = SplitLegalDescription(a.LegalDescriptionMetesBounds)
		}
	}
}

var entityIndicators = []string{
	" INC", " LLC", " LTD", " LP", " L.P.", " L.L.C.",
	" CORP", " CORPORATION", " COMPANY", " LIMITED", " PARTNERSHIP",
}

// IsEntityBorrower reports whether a grantor name denotes a corporation,
// LLC, or partnership rather than an individual. Entity borrowers have no
// SSN/DOB to collect.
func IsEntityBorrower(grantorName string) bool {
	if grantorName == "" {
		return false
	}
	upper := strings.ToUpper(grantorName)
	for _, indicator := range entityIndicators {
		if strings.Contains(upper, indicator) {
			return true
		}
	}
	return false
}
