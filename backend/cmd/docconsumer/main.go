// Command docconsumer consumes S3 upload notifications from the ingest queue,
// records each document in the tracking table, announces it on the event bus,
// and starts a processing workflow execution per uploaded document.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/backend/internal/chunkplan"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

type Env struct {
	dflwa.BaseEnvironment
	StateMachineArn     string `env:"DF_STATE_MACHINE_ARN,required"`
	TableName           string `env:"DF_TABLE_NAME,required"`
	BusName             string `env:"DF_BUS_NAME,required"`
	ChunkThresholdPages int    `env:"DF_CHUNK_THRESHOLD_PAGES" envDefault:"20"`
}

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux) {
			m.HandleFunc("POST /l/consume", handleConsume)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *sfn.Client {
			return sfn.NewFromConfig(cfg)
		}),
		dflwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
			return dynamodb.NewFromConfig(cfg)
		}),
		dflwa.WithAWSClient(func(cfg aws.Config) *eventbridge.Client {
			return eventbridge.NewFromConfig(cfg)
		}),
	).Run()
}

// handleConsume receives the raw SQS event via the LWA pass-through path and
// reports per-message failures so only the failed uploads are redelivered.
func handleConsume(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)

	var event events.SQSEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		return errors.Wrap(err, "failed to decode SQS event")
	}

	var resp events.SQSEventResponse
	for _, record := range event.Records {
		if err := consumeRecord(ctx, record.Body); err != nil {
			log.Error("failed to consume upload notification",
				zap.String("message_id", record.MessageId),
				zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// consumeRecord starts one workflow execution per S3 record in the message,
// after recording the document as PROCESSING in the tracking table.
func consumeRecord(ctx context.Context, body string) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)

	if docevents.IsTestEvent(body) {
		log.Info("skipping s3 test event")
		return nil
	}

	var s3Event events.S3Event
	if err := json.Unmarshal([]byte(body), &s3Event); err != nil {
		return errors.Wrap(err, "failed to decode S3 event body")
	}

	for _, record := range s3Event.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return errors.Wrapf(err, "failed to decode object key %q", record.S3.Object.Key)
		}
		if docevents.IsFolderKey(key) {
			log.Info("skipping folder key", zap.String("key", key))
			continue
		}

		now := time.Now()
		input := buildTaskInput(record, key, env.ChunkThresholdPages, now)

		if err := recordReceipt(ctx, input, now); err != nil {
			return err
		}

		payload, err := json.Marshal(input)
		if err != nil {
			return errors.Wrap(err, "failed to marshal workflow input")
		}

		client := dflwa.AWS[sfn.Client](ctx)
		out, err := client.StartExecution(ctx, &sfn.StartExecutionInput{
			StateMachineArn: aws.String(env.StateMachineArn),
			Name:            aws.String(input.DocumentID),
			Input:           aws.String(string(payload)),
		})
		if err != nil {
			return errors.Wrapf(err, "failed to start execution for %q", key)
		}

		log.Info("started workflow execution",
			zap.String("document_id", input.DocumentID),
			zap.String("key", key),
			zap.Int("estimated_pages", input.EstimatedPages),
			zap.Bool("requires_chunking", input.RequiresChunking),
			zap.Stringp("execution_arn", out.ExecutionArn))
	}
	return nil
}

// buildTaskInput derives the workflow input for one uploaded object. The
// derived document ID doubles as the execution name, so it stays within the
// execution-name length limit.
func buildTaskInput(record events.S3EventRecord, key string, thresholdPages int, now time.Time) docevents.TaskInput {
	pages := chunkplan.EstimatePages(record.S3.Object.Size)
	return docevents.TaskInput{
		DocumentID:       docevents.DeriveDocumentID(key, now),
		Bucket:           record.S3.Bucket.Name,
		Key:              key,
		EstimatedPages:   pages,
		RequiresChunking: pages > thresholdPages,
	}
}

// recordReceipt writes the initial PROCESSING record to the tracking table
// and announces the upload on the event bus before the workflow starts, so
// the document is queryable even if the execution fails to launch.
func recordReceipt(ctx context.Context, input docevents.TaskInput, now time.Time) error {
	env := dflwa.Env[Env](ctx)

	record := docevents.NewDocumentRecord(input.DocumentID, input.Key, docevents.StatusProcessing, now)
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document record")
	}

	ddb := dflwa.AWS[dynamodb.Client](ctx)
	if _, err := ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(env.TableName),
		Item:      item,
	}); err != nil {
		return errors.Wrapf(err, "failed to record receipt of %q", input.DocumentID)
	}

	detail, err := json.Marshal(docevents.StatusEvent{
		DocumentID: input.DocumentID,
		Status:     docevents.StatusProcessing,
		At:         now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal status event")
	}

	eb := dflwa.AWS[eventbridge.Client](ctx)
	_, err = eb.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []ebtypes.PutEventsRequestEntry{{
			EventBusName: aws.String(env.BusName),
			Source:       aws.String(docevents.EventSource),
			DetailType:   aws.String(docevents.DetailTypeDocumentReceived),
			Detail:       aws.String(string(detail)),
		}},
	})
	return errors.Wrapf(err, "failed to put %s event", docevents.DetailTypeDocumentReceived)
}
