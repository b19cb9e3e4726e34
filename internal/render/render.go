// Package render fills the File Abstract DOCX template from a finished
// abstract. A .docx is a zip archive; placeholders of the form {KEY} live in
// the document XML and get substituted in place.
package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/quorumtitle/abstractor/internal/abstract"
)

// TemplateData maps template placeholder keys to abstract values. Key names
// follow the template document, including its quirks.
func TemplateData(a *abstract.FileAbstract) map[string]string {
	trustees := strings.Join(a.ServiceLinkTrustees, ", ")

	legalCombined := a.LegalDescriptionMetesBounds
	if legalCombined == "" {
		legalCombined = a.LegalDescriptionRecording
	}

	return map[string]string{
		"COMMON-ADDRESS":        a.CommonAddress,
		"GRANTOR-NAME":          a.GrantorName,
		"GRANTOR-REP":           a.GrantorRep,
		"GRANTOR-REP-TITLE":     a.GrantorRepTitle,
		"EIN":                   a.EIN,
		"SSN":                   a.SSN,
		"ORIGINAL-GRANTEE-NAME": a.OriginalGrantee,
		"CURRENT-GRANTEE-NAME":  a.CurrentGrantee,
		"TRUSTEE":               a.Trustee,
		"LOAN SERVICER":         a.LoanServicer,
		"LOAN-SERVICER":         a.LoanServicer,
		"LEGAL DESCRIPTION":     a.LegalDescriptionRecording,
		"LEGAL-DESCRIPTION":     legalCombined,
		"DOT-INSRUMENT#":        a.DOTInstrumentNumber,
		"DOT-EFF-DATE":          a.DOTEffectiveDate,
		"DOT-R-DATE":            a.DOTRecordingDate,
		"COUNTY":                a.County,
		"NOTE-DATE":             a.NoteDate,
		"NOTE-AMOUNT":           a.NoteAmount,
		"NOTE-MATURITY-DATE":    a.NoteMaturityDate,
		"INTEREST-RATE":         a.InterestRate,
		"COUNTY-SEAT":           a.CountySeat,
		"SVCLINK-SUB-TRUSTEES":  trustees,
		"SVCLINK-DATE":          a.ServiceLinkDate,
		"HOURS OF SALES":        a.SaleHours,
		"LOCATION OF SALES":     a.SaleLocation,
	}
}

// Filename names the generated document after the property address.
func Filename(a *abstract.FileAbstract) string {
	if a.CommonAddress != "" {
		return fmt.Sprintf("File Abstract - %s.docx", a.CommonAddress)
	}
	return "File Abstract - Generated.docx"
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// FillPlaceholders substitutes {KEY} markers in text. Values are XML-escaped
// since the text comes from document XML parts.
func FillPlaceholders(text string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{"+key+"}", xmlEscaper.Replace(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// isDocumentPart reports whether a zip entry holds substitutable content.
func isDocumentPart(name string) bool {
	if !strings.HasSuffix(name, ".xml") {
		return false
	}
	return name == "word/document.xml" ||
		strings.HasPrefix(name, "word/header") ||
		strings.HasPrefix(name, "word/footer")
}

// Docx fills the template archive with the abstract's values and returns
// the rendered document bytes.
func Docx(template []byte, a *abstract.FileAbstract) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}

	data := TemplateData(a)

	var out bytes.Buffer
	writer := zip.NewWriter(&out)

	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read template entry %s: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read template entry %s: %w", entry.Name, err)
		}

		if isDocumentPart(entry.Name) {
			content = []byte(FillPlaceholders(string(content), data))
		}

		header := entry.FileHeader
		w, err := writer.CreateHeader(&header)
		if err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", entry.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", entry.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize document: %w", err)
	}
	return out.Bytes(), nil
}
