package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

// classificationPlaceholder in the extraction prompt is replaced with the
// classification the classify task produced.
const classificationPlaceholder = "[ACTUAL_CLASSIFICATION]"

const defaultClassifyPrompt = `Classify the attached document into exactly one of these classes:
invoice, contract, report, correspondence, form, other.

Respond with a single JSON object and nothing else:
{"classification": "<class>", "confidence": <0.0-1.0>}`

const defaultExtractPrompt = `The attached document was classified as [ACTUAL_CLASSIFICATION].
Extract the key entities relevant for that document class.

Respond with a single JSON object and nothing else:
{"entities": [{"type": "<entity type>", "value": "<entity value>", "confidence": <0.0-1.0>}]}`

const maxResponseTokens = 2048

// handleClassify classifies a document, or a single chunk of it when the
// input carries a chunk range.
func handleClassify(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)

	var input docevents.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return errors.Wrap(err, "failed to decode classify input")
	}

	prompt := env.ClassifyPrompt
	if prompt == "" {
		prompt = defaultClassifyPrompt
	}

	var parsed struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
	}
	if err := converseJSON(ctx, input, prompt, &parsed); err != nil {
		return err
	}

	log.Info("classified document",
		zap.String("document_id", input.DocumentID),
		zap.String("classification", parsed.Classification),
		zap.Float64("confidence", parsed.Confidence))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(docevents.ClassifyResult{
		TaskInput:      input,
		Classification: parsed.Classification,
		Confidence:     parsed.Confidence,
	})
}

// handleExtract extracts entities from a document or chunk, guided by the
// classification already attached to the input.
func handleExtract(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)

	var input docevents.ClassifyResult
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return errors.Wrap(err, "failed to decode extract input")
	}

	template := env.ExtractPrompt
	if template == "" {
		template = defaultExtractPrompt
	}
	prompt := strings.ReplaceAll(template, classificationPlaceholder, input.Classification)

	var parsed struct {
		Entities []docevents.Entity `json:"entities"`
	}
	if err := converseJSON(ctx, input.TaskInput, prompt, &parsed); err != nil {
		return err
	}

	log.Info("extracted entities",
		zap.String("document_id", input.DocumentID),
		zap.String("classification", input.Classification),
		zap.Int("entities", len(parsed.Entities)))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(docevents.ExtractResult{
		ClassifyResult: input,
		Entities:       parsed.Entities,
	})
}

// converseJSON sends the document and prompt to the model and decodes the
// JSON object it replies with into out.
func converseJSON(ctx context.Context, input docevents.TaskInput, prompt string, out any) error {
	env := dflwa.Env[Env](ctx)

	doc, err := fetchDocument(ctx, input)
	if err != nil {
		return err
	}

	if input.Chunk != nil {
		prompt = fmt.Sprintf("Consider only pages %d through %d of the document (chunk %d of %d).\n\n%s",
			input.Chunk.StartPage, input.Chunk.EndPage,
			input.Chunk.Index+1, input.Chunk.TotalChunks, prompt)
	}

	client := dflwa.AWS[bedrockruntime.Client](ctx)
	resp, err := client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(env.ModelID),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberDocument{Value: types.DocumentBlock{
					Format: documentFormat(input.Key),
					Name:   aws.String("document"),
					Source: &types.DocumentSourceMemberBytes{Value: doc},
				}},
				&types.ContentBlockMemberText{Value: prompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxResponseTokens),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return errors.Wrap(err, "model invocation failed")
	}

	text, err := responseText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), out); err != nil {
		return errors.Wrapf(err, "model returned unparseable response: %s", text)
	}
	return nil
}

// fetchDocument reads the source object from the bucket.
func fetchDocument(ctx context.Context, input docevents.TaskInput) ([]byte, error) {
	client := dflwa.AWS[s3.Client](ctx)
	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(input.Bucket),
		Key:    aws.String(input.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %q", input.Key)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", input.Key)
	}
	return data, nil
}

// documentFormat maps the object key's extension to a Converse document
// format, defaulting to pdf.
func documentFormat(key string) types.DocumentFormat {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(key), ".")) {
	case "csv":
		return types.DocumentFormatCsv
	case "doc":
		return types.DocumentFormatDoc
	case "docx":
		return types.DocumentFormatDocx
	case "html":
		return types.DocumentFormatHtml
	case "md":
		return types.DocumentFormatMd
	case "txt":
		return types.DocumentFormatTxt
	case "xls":
		return types.DocumentFormatXls
	case "xlsx":
		return types.DocumentFormatXlsx
	default:
		return types.DocumentFormatPdf
	}
}

// responseText pulls the first text block out of a Converse response.
func responseText(resp *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.Newf("unexpected model output type %T", resp.Output)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", errors.New("model response contains no text block")
}

// extractJSON trims any prose or code fences the model wrapped around the
// JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
