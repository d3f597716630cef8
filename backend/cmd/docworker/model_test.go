package main

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		in   string
		want string
	}{
		"bare object":  {`{"a":1}`, `{"a":1}`},
		"code fence":   {"```json\n{\"a\":1}\n```", `{"a":1}`},
		"leading text": {`Here is the result: {"a":1}`, `{"a":1}`},
		"no object":    {"no json here", "no json here"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}

func TestDocumentFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, types.DocumentFormatPdf, documentFormat("raw/invoice.pdf"))
	assert.Equal(t, types.DocumentFormatDocx, documentFormat("raw/report.DOCX"))
	assert.Equal(t, types.DocumentFormatCsv, documentFormat("raw/data.csv"))
	assert.Equal(t, types.DocumentFormatPdf, documentFormat("raw/unknown.bin"))
	assert.Equal(t, types.DocumentFormatPdf, documentFormat("raw/noextension"))
}

func TestDefaultPrompts(t *testing.T) {
	t.Parallel()

	assert.Contains(t, defaultExtractPrompt, classificationPlaceholder)
	assert.NotContains(t, defaultClassifyPrompt, classificationPlaceholder)
	assert.True(t, strings.Contains(defaultClassifyPrompt, "JSON"))
}
