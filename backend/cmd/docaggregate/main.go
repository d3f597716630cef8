// Command docaggregate finalizes workflow runs: it combines chunk results
// into one document outcome, records it in the tracking table, and emits a
// lifecycle event. A separate path records failures caught by the workflow.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/backend/internal/aggregate"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

type Env struct {
	dflwa.BaseEnvironment
	TableName string `env:"DF_TABLE_NAME,required"`
	BusName   string `env:"DF_BUS_NAME,required"`
}

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux) {
			m.HandleFunc("POST /l/aggregate-results", handleAggregate)
			m.HandleFunc("POST /l/record-failure", handleRecordFailure)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
			return dynamodb.NewFromConfig(cfg)
		}),
		dflwa.WithAWSClient(func(cfg aws.Config) *eventbridge.Client {
			return eventbridge.NewFromConfig(cfg)
		}),
	).Run()
}

func handleAggregate(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)

	var input docevents.AggregateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return errors.Wrap(err, "failed to decode aggregate input")
	}

	result := aggregate.Combine(input)
	now := time.Now()

	record := docevents.NewDocumentRecord(result.DocumentID, result.Key, docevents.StatusCompleted, now)
	record.Classification = result.Classification
	record.Confidence = result.Confidence
	record.Entities = result.Entities
	record.ChunkCount = result.ChunkCount

	if err := putRecord(ctx, record); err != nil {
		return err
	}

	for _, em := range completionEmissions(result, now) {
		if err := putStatusEvent(ctx, em.detailType, em.event); err != nil {
			return err
		}
	}

	log.Info("aggregated document results",
		zap.String("document_id", result.DocumentID),
		zap.String("classification", result.Classification),
		zap.Int("chunk_count", result.ChunkCount),
		zap.Int("entities", len(result.Entities)))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(result)
}

type emission struct {
	detailType string
	event      docevents.StatusEvent
}

// completionEmissions returns the lifecycle events announced for a finished
// document. The classification outcome and the extraction outcome go out
// separately so consumers that only route on document class don't need to
// parse the full extraction payload.
func completionEmissions(result docevents.AggregateResult, now time.Time) []emission {
	at := now.UTC().Format(time.RFC3339)
	base := docevents.StatusEvent{
		DocumentID:     result.DocumentID,
		Status:         docevents.StatusCompleted,
		Classification: result.Classification,
		At:             at,
	}
	return []emission{
		{detailType: docevents.DetailTypeDocumentClassified, event: base},
		{detailType: docevents.DetailTypeDocumentExtracted, event: base},
	}
}

func handleRecordFailure(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)

	var input docevents.FailureInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return errors.Wrap(err, "failed to decode failure input")
	}

	now := time.Now()
	record := docevents.NewDocumentRecord(input.DocumentID, input.Key, docevents.StatusFailed, now)
	if input.Err != nil {
		record.Error = input.Err.Error + ": " + input.Err.Cause
	}

	if err := putRecord(ctx, record); err != nil {
		return err
	}

	if err := putStatusEvent(ctx, docevents.DetailTypeDocumentFailed, docevents.StatusEvent{
		DocumentID: input.DocumentID,
		Status:     docevents.StatusFailed,
		Error:      record.Error,
		At:         now.UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	log.Warn("recorded workflow failure",
		zap.String("document_id", input.DocumentID),
		zap.String("error", record.Error))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]string{
		"documentId": input.DocumentID,
		"status":     docevents.StatusFailed,
	})
}

func putRecord(ctx context.Context, record docevents.DocumentRecord) error {
	env := dflwa.Env[Env](ctx)

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document record")
	}

	client := dflwa.AWS[dynamodb.Client](ctx)
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(env.TableName),
		Item:      item,
	})
	return errors.Wrapf(err, "failed to write record for %q", record.DocumentID)
}

func putStatusEvent(ctx context.Context, detailType string, event docevents.StatusEvent) error {
	env := dflwa.Env[Env](ctx)

	detail, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal status event")
	}

	client := dflwa.AWS[eventbridge.Client](ctx)
	_, err = client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{{
			EventBusName: aws.String(env.BusName),
			Source:       aws.String(docevents.EventSource),
			DetailType:   aws.String(detailType),
			Detail:       aws.String(string(detail)),
		}},
	})
	return errors.Wrapf(err, "failed to put %s event", detailType)
}
