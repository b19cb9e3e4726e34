// Package servicelink parses the ServiceLink substitute-trustee listing, a
// structured county table that must never go through AI extraction.
package servicelink

import (
	"regexp"
	"strings"
)

// CountyData holds the parsed ServiceLink row for one county.
type CountyData struct {
	Trustees     []string `json:"trustees"`
	SaleHours    string   `json:"sale_hours"`
	CountySeat   string   `json:"county_seat"`
	SaleLocation string   `json:"sale_location"`
	Date         string   `json:"date"`
}

var (
	// County rows are anchored by the county name followed by a sale time
	// window like "10am-4pm".
	countyRowRe = regexp.MustCompile(`(?i)([A-Z][a-z]+)\s+(1?\d(?:am|pm)-1?\d(?:am|pm))`)

	// The listing carries a single revision date at the bottom.
	updatedRe = regexp.MustCompile(`(?i)Updated\s+(\d{1,2}-\d{1,2}-\d{4})`)

	// "Add:" asides are courier instructions, not trustee names.
	addAsideRe = regexp.MustCompile(`(?i)Add:\s[^T]*`)

	// Sale locations start with The/At/On.
	locationAnchorRe = regexp.MustCompile(`(?i)\b(The|At|On)\s+`)
	locationStartRe  = regexp.MustCompile(`(?i)^(The|At|On)\s`)

	// The county seat is the city inside the sale location: ", City, Texas".
	seatRe = regexp.MustCompile(`,\s([A-Z][a-zA-Z\s]+?),\sTexas`)

	// Trustee tokens are capitalized name sequences.
	trusteeNameRe    = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z.]+)+$`)
	trusteeKeywordRe = regexp.MustCompile(`(?i)County|Courthouse|Building|Road|Street|Avenue|Drive|Add:`)
	digitRe          = regexp.MustCompile(`\d`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParseByCounty parses raw listing text into a map keyed by normalized
// county name. Counties whose block yields no trustees are dropped.
func ParseByCounty(text string) map[string]CountyData {
	countyMap := make(map[string]CountyData)

	// Flatten: the table's line breaks are layout, not structure.
	fullText := strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ReplaceAll(text, "\n", " "), " "))

	matches := countyRowRe.FindAllStringSubmatchIndex(fullText, -1)
	if len(matches) == 0 {
		return countyMap
	}

	globalDate := ""
	if m := updatedRe.FindStringSubmatch(fullText); m != nil {
		globalDate = m[1]
	}

	// Segment by time anchors: each county's data runs from the end of its
	// anchor to the start of the next.
	for i, match := range matches {
		countyName := strings.TrimSpace(fullText[match[2]:match[3]])
		saleHours := fullText[match[4]:match[5]]

		blockStart := match[1]
		blockEnd := len(fullText)
		if i < len(matches)-1 {
			blockEnd = matches[i+1][0]
		}
		block := strings.TrimSpace(fullText[blockStart:blockEnd])

		data := parseCountyBlock(block, saleHours, globalDate)
		if len(data.Trustees) > 0 {
			countyMap[NormalizeCounty(countyName)] = data
		}
	}

	return countyMap
}

// parseCountyBlock extracts the fields between two time anchors.
//
// Order matters: strip "Add:" asides, find the sale location first, derive
// the county seat from inside it, then read trustees from the text before
// the location.
func parseCountyBlock(block, saleHours, globalDate string) CountyData {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(addAsideRe.ReplaceAllString(block, " "), " "))

	saleLocation := ""
	locationStart := len(cleaned)
	if loc := locationAnchorRe.FindStringIndex(cleaned); loc != nil {
		locationStart = loc[0]
		saleLocation = strings.TrimSpace(cleaned[locationStart:])
		if !locationStartRe.MatchString(saleLocation) {
			saleLocation = ""
		}
	}

	countySeat := ""
	if saleLocation != "" {
		if m := seatRe.FindStringSubmatch(saleLocation); m != nil {
			countySeat = strings.TrimSpace(m[1])
		}
		// The seat is always the sale city; a seat that does not appear in
		// the location is a parse artifact.
		if countySeat != "" && !strings.Contains(saleLocation, countySeat) {
			countySeat = ""
		}
	}

	trustees := []string{}
	beforeLocation := strings.TrimSpace(cleaned[:locationStart])
	if beforeLocation != "" {
		for _, part := range strings.Split(beforeLocation, ",") {
			part = strings.TrimSpace(part)
			if trusteeKeywordRe.MatchString(part) {
				continue
			}
			if digitRe.MatchString(part) {
				continue
			}
			if !strings.Contains(part, " ") {
				continue
			}
			if trusteeNameRe.MatchString(part) && len(part) > 4 && len(part) < 50 {
				trustees = append(trustees, part)
			}
		}
	}

	return CountyData{
		Trustees:     trustees,
		SaleHours:    saleHours,
		CountySeat:   countySeat,
		SaleLocation: saleLocation,
		Date:         globalDate,
	}
}

var (
	countyWordRe = regexp.MustCompile(`(?i)\s*COUNTY\s*`)
	texasWordRe  = regexp.MustCompile(`(?i),\s*TEXAS\s*`)
)

// NormalizeCounty normalizes a county name for matching:
// "Collin County, Texas" and "DALLAS COUNTY" become "collin" and "dallas".
func NormalizeCounty(county string) string {
	normalized := strings.ToUpper(county)
	normalized = countyWordRe.ReplaceAllString(normalized, "")
	normalized = texasWordRe.ReplaceAllString(normalized, "")
	return strings.ToLower(strings.TrimSpace(normalized))
}

// IsListingFile reports whether a filename denotes the ServiceLink listing.
// These files route to this parser and never reach the AI orchestrator.
func IsListingFile(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.Contains(lower, "servicelink") ||
		strings.Contains(lower, "sub-trustee") ||
		strings.Contains(lower, "subtrustee")
}
