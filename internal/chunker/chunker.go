// Package chunker splits large PDFs into page-range chunks sized for
// document extraction requests.
package chunker

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultMaxPages is the page count above which a document gets split.
const DefaultMaxPages = 15

// Chunk is a contiguous page range extracted from a source PDF.
type Chunk struct {
	// Index is the zero-based position of this chunk within the document.
	Index int
	// Total is the number of chunks the document was split into.
	Total int
	// StartPage and EndPage are 1-indexed, inclusive.
	StartPage int
	EndPage   int
	// Filename is the source document name.
	Filename string
	// Data is the chunk's PDF bytes.
	Data []byte
}

// Label returns a human-readable identifier for logs and prompts.
func (c Chunk) Label() string {
	if c.Total == 1 {
		return c.Filename
	}
	return fmt.Sprintf("%s (pages %d-%d)", c.Filename, c.StartPage, c.EndPage)
}

// Pages returns the chunk's page span as "start-end".
func (c Chunk) Pages() string {
	return fmt.Sprintf("%d-%d", c.StartPage, c.EndPage)
}

// PageRange is a 1-indexed inclusive page span.
type PageRange struct {
	Start int
	End   int
}

// PageRanges computes even page spans covering pageCount pages with no span
// longer than maxPages. Spans are balanced so the last chunk is not left
// with a handful of straggler pages.
func PageRanges(pageCount, maxPages int) []PageRange {
	if pageCount <= 0 {
		return nil
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if pageCount <= maxPages {
		return []PageRange{{Start: 1, End: pageCount}}
	}

	numChunks := (pageCount + maxPages - 1) / maxPages
	perChunk := (pageCount + numChunks - 1) / numChunks

	ranges := make([]PageRange, 0, numChunks)
	for start := 1; start <= pageCount; start += perChunk {
		end := start + perChunk - 1
		if end > pageCount {
			end = pageCount
		}
		ranges = append(ranges, PageRange{Start: start, End: end})
	}
	return ranges
}

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// Split divides a PDF into chunks of at most maxPages pages.
// Documents at or under the limit come back as a single chunk holding the
// original bytes, so small files skip a rewrite entirely.
func Split(data []byte, filename string, maxPages int) ([]Chunk, error) {
	pageCount, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	if pageCount <= maxPages {
		return []Chunk{{
			Index:     0,
			Total:     1,
			StartPage: 1,
			EndPage:   pageCount,
			Filename:  filename,
			Data:      data,
		}}, nil
	}

	ranges := PageRanges(pageCount, maxPages)
	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		var buf bytes.Buffer
		selected := []string{fmt.Sprintf("%d-%d", r.Start, r.End)}
		if err := api.Trim(bytes.NewReader(data), &buf, selected, nil); err != nil {
			return nil, fmt.Errorf("failed to extract pages %d-%d from %s: %w", r.Start, r.End, filename, err)
		}
		chunks = append(chunks, Chunk{
			Index:     i,
			Total:     len(ranges),
			StartPage: r.Start,
			EndPage:   r.End,
			Filename:  filename,
			Data:      buf.Bytes(),
		})
	}
	return chunks, nil
}
