package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/quorumtitle/abstractor/internal/chunker"
	"github.com/quorumtitle/abstractor/internal/validate"
)

// RepairableFields is the whitelist of abstract fields the repair pass may
// re-extract. Identity fields (ssn, dob) are collected manually and are
// never repairable.
var RepairableFields = map[string]bool{
	"grantor_name": true, "grantor_rep": true, "grantor_rep_title": true,
	"common_address": true, "county": true, "ein": true,
	"note_date": true, "note_amount": true, "note_maturity_date": true,
	"interest_rate": true, "loan_servicer": true,
	"dot_effective_date": true, "dot_recording_date": true, "dot_instrument_number": true,
	"trustee": true, "original_grantee": true, "current_grantee": true,
	"legal_description_recording": true, "legal_description_metes_bounds": true,
	"servicelink_trustees": true, "county_seat": true, "sale_hours": true,
	"sale_location": true, "servicelink_date": true,
}

var (
	missingFieldRe = regexp.MustCompile(`Missing required field: (\w+)`)
	leadingWordRe  = regexp.MustCompile(`^(\w+) `)
)

// IdentifyRepairFields maps validation findings back to the abstract fields
// they implicate, unions in the missing fields, and filters everything
// through the repairable whitelist. The result is sorted for deterministic
// prompts.
func IdentifyRepairFields(v *validate.Result) []string {
	fields := make(map[string]bool)

	// Legal description issues surface as warnings, so scan both lists.
	issues := make([]string, 0, len(v.Errors)+len(v.Warnings))
	issues = append(issues, v.Errors...)
	issues = append(issues, v.Warnings...)

	for _, issue := range issues {
		if m := missingFieldRe.FindStringSubmatch(issue); m != nil {
			fields[m[1]] = true
			continue
		}
		if m := leadingWordRe.FindStringSubmatch(issue); m != nil {
			fields[m[1]] = true
			continue
		}
		switch {
		case strings.Contains(issue, "legal_description_recording"):
			fields["legal_description_recording"] = true
		case strings.Contains(issue, "legal_description_metes_bounds"):
			fields["legal_description_metes_bounds"] = true
		case strings.Contains(issue, "County") && strings.Contains(issue, "not found"):
			fields["county"] = true
		case strings.Contains(issue, "sale_location"):
			fields["sale_location"] = true
		case strings.Contains(issue, "sale_hours"):
			fields["sale_hours"] = true
		case strings.Contains(issue, "county_seat"):
			fields["county_seat"] = true
		}
	}

	for _, f := range v.MissingFields {
		fields[f] = true
	}

	// The whitelist also drops stray words captured from prose like
	// "File Abstract insufficient" or "STRUCTURAL ERROR".
	var out []string
	for f := range fields {
		if RepairableFields[f] {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// RelevantChunks selects the chunks worth re-reading during repair: any
// chunk whose first pass contributed at least one field.
func RelevantChunks(results []ChunkResult, chunks []chunker.Chunk) []chunker.Chunk {
	var out []chunker.Chunk
	for i, r := range results {
		if i < len(chunks) && r.FieldsFound > 0 {
			out = append(out, chunks[i])
		}
	}
	return out
}
