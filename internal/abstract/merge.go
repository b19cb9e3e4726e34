package abstract

import (
	"fmt"
	"strings"
	"sync"
)

// incoming keys produced by some title search extractions that have no
// abstract counterpart.
var ignoredIncomingKeys = map[string]bool{
	"assignment_instrument_numbers": true,
	"release_instrument_numbers":    true,
}

// Merger serializes merges so parallel chunk extraction stays deterministic
// with respect to the precedence rules below.
type Merger struct {
	mu sync.Mutex
}

// NewMerger creates a Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge folds an extraction partial into the abstract.
//
// Precedence: values from authoritative documents (the recorded deed of
// trust) always overwrite; everything else only fills empty fields. Legal
// description fields are never concatenated, one source wins. The trustee
// list is the one exception: it accumulates as a set union.
func (m *Merger) Merge(a *FileAbstract, incoming map[string]any, authoritative bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range incoming {
		if value == nil {
			continue
		}

		if key == "servicelink_trustees" {
			mergeTrustees(a, value)
			continue
		}
		if ignoredIncomingKeys[key] {
			continue
		}

		strValue := strings.TrimSpace(fmt.Sprint(value))
		if strValue == "" || strValue == "null" {
			continue
		}

		current, known := a.Field(key)
		if !known {
			continue
		}

		// Legal descriptions: authoritative source overwrites, others only
		// fill an empty field. Never merge two sources.
		if key == "legal_description_recording" || key == "legal_description_metes_bounds" {
			if authoritative || current == "" {
				a.SetField(key, strValue)
			}
			continue
		}

		if key == "note_amount" {
			strValue = NormalizeDollar(strValue)
		}

		if authoritative || current == "" {
			a.SetField(key, strValue)
		}
	}
}

// Fields reads the current values of the named fields under the same lock
// that serializes Merge, so callers see a consistent snapshot while other
// goroutines are still merging.
func (m *Merger) Fields(a *FileAbstract, fields []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i], _ = a.Field(f)
	}
	return out
}

func mergeTrustees(a *FileAbstract, value any) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return
	}
	for _, item := range items {
		trimmed := strings.TrimSpace(fmt.Sprint(item))
		if trimmed == "" {
			continue
		}
		found := false
		for _, existing := range a.ServiceLinkTrustees {
			if existing == trimmed {
				found = true
				break
			}
		}
		if !found {
			a.ServiceLinkTrustees = append(a.ServiceLinkTrustees, trimmed)
		}
	}
}

// NormalizeDollar strips currency punctuation from an amount.
func NormalizeDollar(val string) string {
	return strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(val))
}

// IsAuthoritative reports whether a filename denotes a recorded document
// whose values take precedence during merge.
func IsAuthoritative(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.Contains(lower, "dot") ||
		strings.Contains(lower, "deed") ||
		strings.Contains(lower, "recorded")
}

// FieldsFound counts the non-empty values in an extraction partial.
func FieldsFound(incoming map[string]any) int {
	count := 0
	for _, value := range incoming {
		if value == nil {
			continue
		}
		if items, ok := value.([]any); ok {
			if len(items) > 0 {
				count++
			}
			continue
		}
		if strings.TrimSpace(fmt.Sprint(value)) != "" {
			count++
		}
	}
	return count
}
