package aggregate_test

import (
	"testing"

	"github.com/docuflowhq/docuflow/backend/internal/aggregate"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/stretchr/testify/assert"
)

func chunkResult(class string, confidence float64, entities ...docevents.Entity) docevents.ExtractResult {
	return docevents.ExtractResult{
		ClassifyResult: docevents.ClassifyResult{
			Classification: class,
			Confidence:     confidence,
		},
		Entities: entities,
	}
}

func TestMajorityClassification(t *testing.T) {
	t.Parallel()

	t.Run("clear majority", func(t *testing.T) {
		t.Parallel()
		class, conf := aggregate.MajorityClassification([]docevents.ExtractResult{
			chunkResult("invoice", 0.9),
			chunkResult("invoice", 0.7),
			chunkResult("contract", 0.99),
		})
		assert.Equal(t, "invoice", class)
		assert.InDelta(t, 0.8, conf, 0.001)
	})

	t.Run("tie breaks on confidence", func(t *testing.T) {
		t.Parallel()
		class, _ := aggregate.MajorityClassification([]docevents.ExtractResult{
			chunkResult("invoice", 0.5),
			chunkResult("contract", 0.9),
		})
		assert.Equal(t, "contract", class)
	})

	t.Run("full tie is deterministic", func(t *testing.T) {
		t.Parallel()
		class, _ := aggregate.MajorityClassification([]docevents.ExtractResult{
			chunkResult("report", 0.8),
			chunkResult("contract", 0.8),
		})
		assert.Equal(t, "contract", class)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		class, conf := aggregate.MajorityClassification(nil)
		assert.Empty(t, class)
		assert.Zero(t, conf)
	})
}

func TestDedupeEntities(t *testing.T) {
	t.Parallel()

	entities := []docevents.Entity{
		{Type: "amount", Value: "100.00", Confidence: 0.8},
		{Type: "Amount", Value: "100.00", Confidence: 0.95},
		{Type: "vendor", Value: "Acme Corp", Confidence: 0.7},
		{Type: "amount", Value: "250.00", Confidence: 0.9},
	}

	deduped := aggregate.DedupeEntities(entities)
	assert.Len(t, deduped, 3)

	// First occurrence position, highest-confidence duplicate wins.
	assert.Equal(t, 0.95, deduped[0].Confidence)
	assert.Equal(t, "Acme Corp", deduped[1].Value)
	assert.Equal(t, "250.00", deduped[2].Value)
}

func TestDedupeEntities_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, aggregate.DedupeEntities(nil))
}

func TestCombine_SingleResult(t *testing.T) {
	t.Parallel()

	out := aggregate.Combine(docevents.AggregateInput{
		DocumentID:     "doc-1",
		Bucket:         "bucket",
		Key:            "raw/doc.pdf",
		Classification: "invoice",
		Confidence:     0.92,
		Entities: []docevents.Entity{
			{Type: "amount", Value: "100.00"},
			{Type: "amount", Value: "100.00"},
		},
	})

	assert.Equal(t, "doc-1", out.DocumentID)
	assert.Equal(t, "invoice", out.Classification)
	assert.Equal(t, 0.92, out.Confidence)
	assert.Len(t, out.Entities, 1)
	assert.Zero(t, out.ChunkCount)
}

func TestCombine_ChunkResults(t *testing.T) {
	t.Parallel()

	out := aggregate.Combine(docevents.AggregateInput{
		DocumentID: "doc-2",
		ChunkResults: []docevents.ExtractResult{
			chunkResult("contract", 0.9, docevents.Entity{Type: "party", Value: "Acme"}),
			chunkResult("contract", 0.8, docevents.Entity{Type: "party", Value: "acme"}),
			chunkResult("report", 0.95, docevents.Entity{Type: "date", Value: "2026-01-01"}),
		},
	})

	assert.Equal(t, "contract", out.Classification)
	assert.Equal(t, 3, out.ChunkCount)
	assert.Len(t, out.Entities, 2)
}
