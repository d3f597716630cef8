// Package aggregate combines per-chunk model results into one document-level
// outcome.
package aggregate

import (
	"sort"
	"strings"

	"github.com/docuflowhq/docuflow/backend/internal/docevents"
)

// Combine reduces the aggregation input to a single result. With chunk
// results present the classification is decided by majority vote and the
// entities are deduplicated across chunks; otherwise the inlined
// document-level result is passed through.
func Combine(in docevents.AggregateInput) docevents.AggregateResult {
	out := docevents.AggregateResult{
		DocumentID: in.DocumentID,
		Bucket:     in.Bucket,
		Key:        in.Key,
	}

	if len(in.ChunkResults) == 0 {
		out.Classification = in.Classification
		out.Confidence = in.Confidence
		out.Entities = DedupeEntities(in.Entities)
		return out
	}

	out.ChunkCount = len(in.ChunkResults)
	out.Classification, out.Confidence = MajorityClassification(in.ChunkResults)

	var entities []docevents.Entity
	for _, r := range in.ChunkResults {
		entities = append(entities, r.Entities...)
	}
	out.Entities = DedupeEntities(entities)
	return out
}

// MajorityClassification picks the classification most chunks agreed on and
// averages the confidence of the agreeing chunks. Ties break toward the
// higher total confidence, then lexically for determinism.
func MajorityClassification(results []docevents.ExtractResult) (string, float64) {
	if len(results) == 0 {
		return "", 0
	}

	type tally struct {
		count      int
		confidence float64
	}
	tallies := make(map[string]*tally)
	for _, r := range results {
		t, ok := tallies[r.Classification]
		if !ok {
			t = &tally{}
			tallies[r.Classification] = t
		}
		t.count++
		t.confidence += r.Confidence
	}

	classes := make([]string, 0, len(tallies))
	for class := range tallies {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := tallies[classes[i]], tallies[classes[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.confidence != b.confidence {
			return a.confidence > b.confidence
		}
		return classes[i] < classes[j]
	})

	winner := classes[0]
	t := tallies[winner]
	return winner, t.confidence / float64(t.count)
}

// DedupeEntities removes duplicate entities, keying case-insensitively on
// type and value. The occurrence with the highest confidence wins. Input
// order of first occurrence is preserved.
func DedupeEntities(entities []docevents.Entity) []docevents.Entity {
	if len(entities) == 0 {
		return nil
	}

	index := make(map[string]int, len(entities))
	out := make([]docevents.Entity, 0, len(entities))
	for _, e := range entities {
		key := strings.ToLower(e.Type) + "|" + strings.ToLower(e.Value)
		if i, ok := index[key]; ok {
			if e.Confidence > out[i].Confidence {
				out[i] = e
			}
			continue
		}
		index[key] = len(out)
		out = append(out, e)
	}
	return out
}
