package abstract

import "testing"

func TestSplitLegalDescription(t *testing.T) {
	t.Run("splits at beginning at", func(t *testing.T) {
		full := "SITUATED IN COLLIN COUNTY, TEXAS OUT OF THE J. WORRALL SURVEY BEGINNING AT AN IRON ROD FOR CORNER"
		recording, metes := SplitLegalDescription(full)
		if recording != "SITUATED IN COLLIN COUNTY, TEXAS OUT OF THE J. WORRALL SURVEY" {
			t.Errorf("recording = %q", recording)
		}
		if metes != "BEGINNING AT AN IRON ROD FOR CORNER" {
			t.Errorf("metes = %q", metes)
		}
	})

	t.Run("no split phrase keeps recording", func(t *testing.T) {
		recording, metes := SplitLegalDescription("LOT 4, BLOCK B, HIGHLAND PARK ADDITION")
		if recording == "" || metes != "" {
			t.Errorf("recording = %q, metes = %q", recording, metes)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		recording, metes := SplitLegalDescription("   ")
		if recording != "" || metes != "" {
			t.Errorf("expected empty, got %q / %q", recording, metes)
		}
	})
}

func TestApplyLegalSplit(t *testing.T) {
	t.Run("splits full text in recording field", func(t *testing.T) {
		a := New()
		a.LegalDescriptionRecording = "SITUATED IN DALLAS COUNTY SURVEY BEGINNING AT A STAKE"
		a.ApplyLegalSplit()
		if a.LegalDescriptionRecording != "SITUATED IN DALLAS COUNTY SURVEY" {
			t.Errorf("recording = %q", a.LegalDescriptionRecording)
		}
		if a.LegalDescriptionMetesBounds != "BEGINNING AT A STAKE" {
			t.Errorf("metes = %q", a.LegalDescriptionMetesBounds)
		}
	})

	t.Run("splits misplaced metes field", func(t *testing.T) {
		a := New()
		a.LegalDescriptionMetesBounds = "SITUATED IN DALLAS COUNTY BEGINNING AT A STAKE"
		a.ApplyLegalSplit()
		if a.LegalDescriptionRecording != "SITUATED IN DALLAS COUNTY" {
			t.Errorf("recording = %q", a.LegalDescriptionRecording)
		}
	})

	t.Run("leaves separately populated fields alone", func(t *testing.T) {
		a := New()
		a.LegalDescriptionRecording = "LOT 4, BLOCK B"
		a.LegalDescriptionMetesBounds = "BEGINNING AT AN IRON ROD"
		a.ApplyLegalSplit()
		if a.LegalDescriptionRecording != "LOT 4, BLOCK B" {
			t.Errorf("recording = %q", a.LegalDescriptionRecording)
		}
		if a.LegalDescriptionMetesBounds != "BEGINNING AT AN IRON ROD" {
			t.Errorf("metes = %q", a.LegalDescriptionMetesBounds)
		}
	})
}

func TestIsEntityBorrower(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ACME HOLDINGS LLC", true},
		{"SMITH PROPERTIES INC", true},
		{"WORRALL FAMILY LIMITED PARTNERSHIP", true},
		{"JOHN DOE", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEntityBorrower(tt.name); got != tt.want {
			t.Errorf("IsEntityBorrower(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
