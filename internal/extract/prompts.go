package extract

import (
	"fmt"
	"strings"
)

// UnifiedExtractionPrompt asks for every abstract field in one pass so a
// chunk never needs a second round trip to classify its document type.
const UnifiedExtractionPrompt = `Extract ALL foreclosure-related information from this PDF chunk.

Return JSON with these fields (use null if not present):

BORROWER / GRANTOR:
- grantor_name: string | null (exact legal name as written)
- grantor_rep: string | null
- grantor_rep_title: string | null
- common_address: string | null
- ein: string | null (Employer Identification Number if present)
- county: string | null (e.g., "Collin County, Texas" or "Dallas County")

PROMISSORY NOTE:
- note_date: string | null
- note_amount: string | null (numeric value only, no $ or commas)
- note_maturity_date: string | null
- interest_rate: string | null (include % if shown)
- loan_servicer: string | null

DEED OF TRUST:
- trustee: string | null
- original_grantee: string | null (full legal name)
- current_grantee: string | null (full legal name)
- dot_effective_date: string | null
- dot_recording_date: string | null
- dot_instrument_number: string | null
- legal_description_recording: string | null (CRITICAL: copy COMPLETE text verbatim - do NOT truncate)
- legal_description_metes_bounds: string | null (CRITICAL: copy COMPLETE text verbatim - do NOT truncate)

SERVICELINK (if this is a ServiceLink PDF):
- servicelink_trustees: string[] | null (array of trustee names from this page)
- county_seat: string | null (city name)
- sale_hours: string | null (time range, e.g., "10:00 AM to 4:00 PM")
- sale_location: string | null (CRITICAL: copy FULL sentence verbatim - do NOT shorten to just "County Courthouse")
- servicelink_date: string | null

CRITICAL RULES:
- Return ONLY valid JSON
- Use null for missing fields
- NEVER guess, infer, or fabricate values
- For legal descriptions: copy COMPLETE text VERBATIM - truncation is not allowed
- For sale_location: copy FULL descriptive sentence - do NOT abbreviate
- Preserve exact text from document - do not paraphrase
- Dates should remain in document format
- Do NOT extract: ssn, dob (these are collected separately via user input)
- For entity borrowers (INC, LLC, LTD, LP): do NOT fabricate SSN/DOB

Return JSON only, no markdown, no explanation.`

var repairFieldGuidance = map[string]string{
	"legal_description_recording": `
legal_description_recording EXTRACTION RULES:
- This is the LEGAL PROPERTY DESCRIPTION from the Deed of Trust or recorded document
- It MUST contain the word "COUNTY" (e.g., "Collin County", "Dallas County")
- It MUST contain either "SURVEY" or "LOT" (survey name, lot number, or subdivision)
- Look for sections starting with "SITUATED IN" or "BEING" or "TRACT"
- Copy the COMPLETE legal description verbatim - do NOT truncate
- Example: "SITUATED IN COLLIN COUNTY, TEXAS OUT OF THE J. WORRALL SURVEY..."
- Do NOT use the property address here - this must be the formal legal description`,

	"legal_description_metes_bounds": `
legal_description_metes_bounds EXTRACTION RULES:
- This is the METES AND BOUNDS section (directional survey with bearings/distances)
- It MUST start with "BEGINNING" or "COMMENCING"
- Contains technical survey language: bearings (N85°51'40"W), distances (295.48 FEET)
- Look for iron rods, corners, stakes, property boundaries
- Copy the COMPLETE metes and bounds verbatim
- Example: "BEGINNING AT AN IRON ROD FOR CORNER...THENCE N85°51'40"W..."`,

	"sale_location": `
sale_location EXTRACTION RULES:
- This is the SPECIFIC LOCATION where the foreclosure sale will occur
- Must be a PHYSICAL BUILDING or COURTHOUSE, not generic text
- Look for: "[County] County Courthouse", "North Door", "specific building address"
- INVALID examples: "varies by county", "TBD", "at courthouse"
- VALID examples: "Collin County Courthouse, North Door", "2100 Bloomdale Rd, McKinney TX"
- If the document says "varies by county" or similar, return null - do NOT copy that text`,

	"sale_hours": `
sale_hours EXTRACTION RULES:
- Specific time window for foreclosure sale (e.g., "10:00 AM to 4:00 PM")
- Do NOT return generic text like "varies" or "business hours"
- Return null if not explicitly stated`,

	"county_seat": `
county_seat EXTRACTION RULES:
- City name that serves as the county seat (e.g., "McKinney" for Collin County)
- This is where the courthouse is located
- Return null if not found`,
}

// guidanceOrder keeps the repair prompt stable across runs.
var guidanceOrder = []string{
	"legal_description_recording", "legal_description_metes_bounds",
	"sale_location", "sale_hours", "county_seat",
}

// BuildRepairPrompt produces a targeted re-extraction prompt for the fields
// that failed validation. current holds the present value of each field,
// aligned with fieldsToRepair.
func BuildRepairPrompt(fieldsToRepair []string, current []string, validationErrors []string) string {
	var guidance []string
	want := make(map[string]bool, len(fieldsToRepair))
	for _, f := range fieldsToRepair {
		want[f] = true
	}
	for _, name := range guidanceOrder {
		if want[name] {
			guidance = append(guidance, repairFieldGuidance[name])
		}
	}

	var fieldLines []string
	for i, f := range fieldsToRepair {
		val := ""
		if i < len(current) {
			val = current[i]
		}
		fieldLines = append(fieldLines, fmt.Sprintf("- %s: currently %q - needs correction", f, val))
	}

	guidanceBlock := ""
	if len(guidance) > 0 {
		guidanceBlock = "\n" + strings.Join(guidance, "\n") + "\n"
	}

	return fmt.Sprintf(`You are a legal document analyst specializing in Texas nonjudicial foreclosures.

A first-pass extraction was already performed on this document. Some fields failed validation.

Your task: re-extract ONLY the specific fields listed below. Read the document carefully and return corrected values.

FIELDS TO RE-EXTRACT:
%s

VALIDATION FAILURES:
%s
%s
GENERAL RULES:
- Focus ONLY on the requested fields above
- Read the document text carefully - prefer exact values from the document
- Return JSON with only the requested field keys
- Use null if the field truly cannot be found in this document
- Do NOT guess or fabricate values
- Do NOT return fields that were not requested
- For dollar amounts, include the raw number (no $ or commas)
- For dates, use the exact format found in the document
- For names, use the full legal name as written

Return ONLY valid JSON. No markdown, no explanation.`,
		strings.Join(fieldLines, "\n"),
		strings.Join(validationErrors, "\n"),
		guidanceBlock)
}
