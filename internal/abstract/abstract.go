// Package abstract defines the foreclosure File Abstract and the merge rules
// that combine per-chunk extraction partials into a single record.
package abstract

import "strings"

// FileAbstract is the canonical extraction target: every field a Texas
// nonjudicial foreclosure file abstract carries. Empty string means the
// field has not been found yet.
type FileAbstract struct {
	GrantorName     string `json:"grantor_name"`
	GrantorRep      string `json:"grantor_rep"`
	GrantorRepTitle string `json:"grantor_rep_title"`
	CommonAddress   string `json:"common_address"`
	County          string `json:"county"`
	EIN             string `json:"ein"`
	SSN             string `json:"ssn"`
	DOB             string `json:"dob"`

	NoteDate         string `json:"note_date"`
	NoteAmount       string `json:"note_amount"`
	NoteMaturityDate string `json:"note_maturity_date"`
	InterestRate     string `json:"interest_rate"`

	DOTEffectiveDate    string `json:"dot_effective_date"`
	DOTRecordingDate    string `json:"dot_recording_date"`
	DOTInstrumentNumber string `json:"dot_instrument_number"`
	Trustee             string `json:"trustee"`
	OriginalGrantee     string `json:"original_grantee"`
	CurrentGrantee      string `json:"current_grantee"`
	LoanServicer        string `json:"loan_servicer"`

	LegalDescriptionRecording   string `json:"legal_description_recording"`
	LegalDescriptionMetesBounds string `json:"legal_description_metes_bounds"`

	ServiceLinkTrustees []string `json:"servicelink_trustees"`
	CountySeat          string   `json:"county_seat"`
	SaleHours           string   `json:"sale_hours"`
	SaleLocation        string   `json:"sale_location"`
	ServiceLinkDate     string   `json:"servicelink_date"`
}

// FieldNames lists every abstract field in schema order.
var FieldNames = []string{
	"grantor_name", "grantor_rep", "grantor_rep_title", "common_address",
	"county", "ein", "ssn", "dob",
	"note_date", "note_amount", "note_maturity_date", "interest_rate",
	"dot_effective_date", "dot_recording_date", "dot_instrument_number",
	"trustee", "original_grantee", "current_grantee", "loan_servicer",
	"legal_description_recording", "legal_description_metes_bounds",
	"servicelink_trustees", "county_seat", "sale_hours", "sale_location",
	"servicelink_date",
}

// RequiredFields must be present for the abstract to validate.
var RequiredFields = []string{
	"grantor_name", "common_address", "note_amount", "note_date",
	"trustee", "county",
}

// DateFields carry dates and get year sanity checks.
var DateFields = []string{
	"note_date", "note_maturity_date", "dot_effective_date",
	"dot_recording_date", "servicelink_date",
}

// New returns an empty File Abstract.
func New() *FileAbstract {
	return &FileAbstract{}
}

// Field returns the scalar value of a field by its schema name.
// The servicelink_trustees list is returned comma-joined.
func (a *FileAbstract) Field(name string) (string, bool) {
	if name == "servicelink_trustees" {
		return strings.Join(a.ServiceLinkTrustees, ", "), true
	}
	ptr := a.fieldPtr(name)
	if ptr == nil {
		return "", false
	}
	return *ptr, true
}

// SetField sets a scalar field by its schema name.
// Returns false for unknown names and for the trustee list.
func (a *FileAbstract) SetField(name, value string) bool {
	ptr := a.fieldPtr(name)
	if ptr == nil {
		return false
	}
	*ptr = value
	return true
}

// Filled reports whether a field holds a value.
func (a *FileAbstract) Filled(name string) bool {
	if name == "servicelink_trustees" {
		return len(a.ServiceLinkTrustees) > 0
	}
	ptr := a.fieldPtr(name)
	return ptr != nil && strings.TrimSpace(*ptr) != ""
}

// MissingFields returns the schema names of all unfilled fields.
func (a *FileAbstract) MissingFields() []string {
	missing := make([]string, 0)
	for _, name := range FieldNames {
		if !a.Filled(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Completion returns filled and total field counts.
func (a *FileAbstract) Completion() (filled, total int) {
	total = len(FieldNames)
	filled = total - len(a.MissingFields())
	return filled, total
}

func (a *FileAbstract) fieldPtr(name string) *string {
	switch name {
	case "grantor_name":
		return &a.GrantorName
	case "grantor_rep":
		return &a.GrantorRep
	case "grantor_rep_title":
		return &a.GrantorRepTitle
	case "common_address":
		return &a.CommonAddress
	case "county":
		return &a.County
	case "ein":
		return &a.EIN
	case "ssn":
		return &a.SSN
	case "dob":
		return &a.DOB
	case "note_date":
		return &a.NoteDate
	case "note_amount":
		return &a.NoteAmount
	case "note_maturity_date":
		return &a.NoteMaturityDate
	case "interest_rate":
		return &a.InterestRate
	case "dot_effective_date":
		return &a.DOTEffectiveDate
	case "dot_recording_date":
		return &a.DOTRecordingDate
	case "dot_instrument_number":
		return &a.DOTInstrumentNumber
	case "trustee":
		return &a.Trustee
	case "original_grantee":
		return &a.OriginalGrantee
	case "current_grantee":
		return &a.CurrentGrantee
	case "loan_servicer":
		return &a.LoanServicer
	case "legal_description_recording":
		return &a.LegalDescriptionRecording
	case "legal_description_metes_bounds":
		return &a.LegalDescriptionMetesBounds
	case "county_seat":
		return &a.CountySeat
	case "sale_hours":
		return &a.SaleHours
	case "sale_location":
		return &a.SaleLocation
	case "servicelink_date":
		return &a.ServiceLinkDate
	default:
		return nil
	}
}
