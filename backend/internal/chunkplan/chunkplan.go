// Package chunkplan splits large documents into overlapping page-range chunks
// so they fit within model context limits.
package chunkplan

import (
	"github.com/cockroachdb/errors"
)

// estimatedBytesPerPage is a rough heuristic for PDF-like documents, used to
// guess a page count when only the object size is known.
const estimatedBytesPerPage = 50 * 1024

// estimatedBytesPerToken approximates the byte cost of one model token.
const estimatedBytesPerToken = 4

// Chunk is one page range of a document. Consecutive chunks overlap by
// OverlapPages so context at the boundary is not lost.
type Chunk struct {
	Index        int `json:"chunkIndex"`
	TotalChunks  int `json:"totalChunks"`
	StartPage    int `json:"startPage"`
	EndPage      int `json:"endPage"`
	OverlapPages int `json:"overlapPages"`
}

// Plan splits totalPages into chunks of at most chunkPages pages, each
// overlapping the previous one by overlapPages.
func Plan(totalPages, chunkPages, overlapPages int) ([]Chunk, error) {
	if totalPages < 1 {
		return nil, errors.Newf("total pages must be positive, got %d", totalPages)
	}
	if chunkPages < 1 {
		return nil, errors.Newf("chunk size must be positive, got %d", chunkPages)
	}
	if overlapPages < 0 || overlapPages >= chunkPages {
		return nil, errors.Newf("overlap must be in [0, %d), got %d", chunkPages, overlapPages)
	}

	if totalPages <= chunkPages {
		return []Chunk{{
			Index:        0,
			TotalChunks:  1,
			StartPage:    1,
			EndPage:      totalPages,
			OverlapPages: 0,
		}}, nil
	}

	stride := chunkPages - overlapPages

	var chunks []Chunk
	for start := 1; start <= totalPages; start += stride {
		end := start + chunkPages - 1
		if end > totalPages {
			end = totalPages
		}
		chunks = append(chunks, Chunk{
			Index:        len(chunks),
			StartPage:    start,
			EndPage:      end,
			OverlapPages: overlapPages,
		})
		if end == totalPages {
			break
		}
	}
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}

// EstimatePages guesses a page count from the raw object size. Returns at
// least 1.
func EstimatePages(sizeBytes int64) int {
	pages := int(sizeBytes / estimatedBytesPerPage)
	if sizeBytes%estimatedBytesPerPage != 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}

// EstimateTokens guesses how many model tokens a text consumes. Returns at
// least 1 for non-empty text.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len(text) / estimatedBytesPerToken
	if tokens < 1 {
		return 1
	}
	return tokens
}
