package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/backend/internal/chunkplan"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

// handleChunkDocument splits the document into overlapping page ranges and
// writes one work-item object per chunk under chunks/<documentId>/. The
// returned plan feeds the Map state.
func handleChunkDocument(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)
	client := dflwa.AWS[s3.Client](ctx)

	var input docevents.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return errors.Wrap(err, "failed to decode chunk input")
	}

	pages := input.EstimatedPages
	if pages == 0 {
		head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(input.Bucket),
			Key:    aws.String(input.Key),
		})
		if err != nil {
			return errors.Wrapf(err, "failed to head %q", input.Key)
		}
		pages = chunkplan.EstimatePages(aws.ToInt64(head.ContentLength))
	}

	chunks, err := chunkplan.Plan(pages, env.ChunkSizePages, env.ChunkOverlapPages)
	if err != nil {
		return errors.Wrap(err, "failed to plan chunks")
	}

	plan := docevents.ChunkPlan{TaskInput: input}
	plan.EstimatedPages = pages
	for i := range chunks {
		item := docevents.TaskInput{
			DocumentID: input.DocumentID,
			Bucket:     input.Bucket,
			Key:        input.Key,
			Chunk:      &chunks[i],
		}
		plan.Chunks = append(plan.Chunks, item)

		body, err := json.Marshal(item)
		if err != nil {
			return errors.Wrap(err, "failed to marshal chunk work item")
		}
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(input.Bucket),
			Key:         aws.String(docevents.ChunkObjectKey(input.DocumentID, chunks[i].Index)),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return errors.Wrapf(err, "failed to write chunk object %d", chunks[i].Index)
		}
	}

	log.Info("planned document chunks",
		zap.String("document_id", input.DocumentID),
		zap.Int("pages", pages),
		zap.Int("chunks", len(plan.Chunks)))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(plan)
}
