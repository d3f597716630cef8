// Package docevents holds the payload types exchanged between the pipeline
// functions and the workflow, plus the document identity rules.
package docevents

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/docuflowhq/docuflow/backend/internal/chunkplan"
)

// Bucket prefixes. These must match the dfcdkbucket constants.
const (
	RawPrefix       = "raw/"
	ChunksPrefix    = "chunks/"
	ProcessedPrefix = "processed/"
)

// Event source and detail types emitted to the event bus. These must match
// the dfcdkeventbus constants.
const (
	EventSource = "docuflow.pipeline"

	DetailTypeDocumentReceived   = "DocumentReceived"
	DetailTypeDocumentClassified = "DocumentClassified"
	DetailTypeDocumentExtracted  = "DocumentExtracted"
	DetailTypeDocumentFailed     = "DocumentFailed"
)

// Document lifecycle statuses stored in the tracking table.
const (
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// TaskInput is the state passed into the classify and extract tasks. For the
// chunked path Chunk is set and the task operates on that page range only.
type TaskInput struct {
	DocumentID       string           `json:"documentId"`
	Bucket           string           `json:"bucket"`
	Key              string           `json:"key"`
	EstimatedPages   int              `json:"estimatedPages,omitempty"`
	RequiresChunking bool             `json:"requiresChunking,omitempty"`
	Chunk            *chunkplan.Chunk `json:"chunk,omitempty"`
}

// ChunkPlan is the output of the chunk-document task: the original input plus
// one work item per chunk for the Map state to iterate.
type ChunkPlan struct {
	TaskInput
	Chunks []TaskInput `json:"chunks"`
}

// ClassifyResult is the output of the classify task.
type ClassifyResult struct {
	TaskInput
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

// Entity is a single value extracted from a document.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ExtractResult is the output of the extract task.
type ExtractResult struct {
	ClassifyResult
	Entities []Entity `json:"entities"`
}

// AggregateInput is the state reaching the aggregation task. For the chunked
// path ChunkResults holds one result per chunk; otherwise the single
// document-level result is inlined.
type AggregateInput struct {
	DocumentID     string          `json:"documentId"`
	Bucket         string          `json:"bucket"`
	Key            string          `json:"key"`
	Classification string          `json:"classification,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
	Entities       []Entity        `json:"entities,omitempty"`
	ChunkResults   []ExtractResult `json:"chunkResults,omitempty"`
}

// AggregateResult is the final outcome written to the tracking table.
type AggregateResult struct {
	DocumentID     string   `json:"documentId"`
	Bucket         string   `json:"bucket"`
	Key            string   `json:"key"`
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Entities       []Entity `json:"entities"`
	ChunkCount     int      `json:"chunkCount"`
}

// WorkflowError is the Error/Cause object the workflow writes on a caught
// task failure.
type WorkflowError struct {
	Error string `json:"Error"`
	Cause string `json:"Cause"`
}

// FailureInput is the state reaching the record-failure task.
type FailureInput struct {
	DocumentID string         `json:"documentId"`
	Bucket     string         `json:"bucket"`
	Key        string         `json:"key"`
	Err        *WorkflowError `json:"error,omitempty"`
}

// StatusEvent is the detail payload of the lifecycle events put on the bus.
type StatusEvent struct {
	DocumentID     string `json:"documentId"`
	Status         string `json:"status"`
	Classification string `json:"classification,omitempty"`
	Error          string `json:"error,omitempty"`
	At             string `json:"at"`
}

// DocumentRecord is the tracking-table item for a document. The gsi1 keys
// support listing documents by status, newest first.
type DocumentRecord struct {
	PK             string   `dynamodbav:"pk" json:"-"`
	SK             string   `dynamodbav:"sk" json:"-"`
	GSI1PK         string   `dynamodbav:"gsi1pk" json:"-"`
	GSI1SK         string   `dynamodbav:"gsi1sk" json:"-"`
	DocumentID     string   `dynamodbav:"documentId" json:"documentId"`
	Key            string   `dynamodbav:"key" json:"key"`
	Status         string   `dynamodbav:"status" json:"status"`
	Classification string   `dynamodbav:"classification,omitempty" json:"classification,omitempty"`
	Confidence     float64  `dynamodbav:"confidence,omitempty" json:"confidence,omitempty"`
	Entities       []Entity `dynamodbav:"entities,omitempty" json:"entities,omitempty"`
	ChunkCount     int      `dynamodbav:"chunkCount,omitempty" json:"chunkCount,omitempty"`
	Error          string   `dynamodbav:"error,omitempty" json:"error,omitempty"`
	UpdatedAt      string   `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt      int64    `dynamodbav:"expiresAt" json:"-"`
}

// recordTTL controls how long tracking records stay queryable.
const recordTTL = 90 * 24 * time.Hour

// NewDocumentRecord builds a tracking-table item for the given document and
// status.
func NewDocumentRecord(documentID, key, status string, now time.Time) DocumentRecord {
	return DocumentRecord{
		PK:         "doc#" + documentID,
		SK:         "status",
		GSI1PK:     "status#" + status,
		GSI1SK:     now.UTC().Format(time.RFC3339),
		DocumentID: documentID,
		Key:        key,
		Status:     status,
		UpdatedAt:  now.UTC().Format(time.RFC3339),
		ExpiresAt:  now.Add(recordTTL).Unix(),
	}
}

// DocumentPK returns the partition key for a document's records.
func DocumentPK(documentID string) string {
	return "doc#" + documentID
}

// ChunkObjectPrefix returns the bucket prefix holding a document's temporary
// chunk objects.
func ChunkObjectPrefix(documentID string) string {
	return ChunksPrefix + documentID + "/"
}

// ChunkObjectKey returns the bucket key of one chunk work item.
func ChunkObjectKey(documentID string, index int) string {
	return fmt.Sprintf("%s%s/%04d.json", ChunksPrefix, documentID, index)
}

// maxDocumentIDLen caps derived IDs at the Step Functions execution-name
// limit, since the consumer names each execution after the document ID.
const maxDocumentIDLen = 80

// DeriveDocumentID derives a stable document identifier from an uploaded
// object key: the raw/ prefix and file extension are stripped, the remainder
// is sanitized to lowercase alphanumerics and dashes, and a millisecond
// timestamp is appended so re-uploads of the same file get distinct IDs.
// Long names are truncated so the ID never exceeds 80 characters; the
// timestamp suffix is always kept intact.
func DeriveDocumentID(key string, now time.Time) string {
	name := strings.TrimPrefix(key, RawPrefix)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = sanitize(name)
	if name == "" {
		name = "document"
	}
	suffix := fmt.Sprintf("-%d", now.UnixMilli())
	if limit := maxDocumentIDLen - len(suffix); len(name) > limit {
		name = strings.TrimSuffix(name[:limit], "-")
	}
	return name + suffix
}

// sanitize lowercases and replaces every run of characters outside [a-z0-9]
// with a single dash.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// IsFolderKey reports whether an object key denotes a folder placeholder.
func IsFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// IsTestEvent reports whether an SQS message body is the s3:TestEvent S3
// publishes when a notification is first configured.
func IsTestEvent(body string) bool {
	var envelope struct {
		Event string `json:"Event"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return false
	}
	return envelope.Event == "s3:TestEvent"
}
