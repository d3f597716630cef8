// Package dfcdkdocpipeline provides the document processing pipeline
// construct: an S3 bucket with an upload queue, a Step Functions state
// machine that classifies and extracts documents with Bedrock, a DynamoDB
// tracking table, and an EventBridge bus carrying lifecycle events.
//
// Uploads under raw/ notify the ingest queue. The consumer function derives a
// document ID, records the document in the tracking table, announces receipt
// on the event bus, and starts the state machine. Large documents are split into overlapping page chunks that
// are classified and extracted in parallel; results are aggregated by
// majority vote before the chunk objects are cleaned up.
package dfcdkdocpipeline

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkbucket"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkeventbus"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkkey"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdklambda"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkloggroup"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkqueue"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdktable"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
	"github.com/iancoleman/strcase"
)

// DefaultModelID is the Bedrock model used for classification and extraction
// when none is configured.
const DefaultModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// Chunking defaults, in pages. Documents above the threshold are split into
// overlapping chunks processed in parallel.
const (
	DefaultChunkThresholdPages = 20
	DefaultChunkSizePages      = 10
	DefaultChunkOverlapPages   = 1
)

// Environment variable names shared with the backend functions.
const (
	EnvBucketName          = "DF_BUCKET_NAME"
	EnvTableName           = "DF_TABLE_NAME"
	EnvBusName             = "DF_BUS_NAME"
	EnvModelID             = "DF_MODEL_ID"
	EnvStateMachineArn     = "DF_STATE_MACHINE_ARN"
	EnvChunkThresholdPages = "DF_CHUNK_THRESHOLD_PAGES"
	EnvChunkSizePages      = "DF_CHUNK_SIZE_PAGES"
	EnvChunkOverlapPages   = "DF_CHUNK_OVERLAP_PAGES"
	EnvClassifyPrompt      = "DF_CLASSIFY_PROMPT"
	EnvExtractPrompt       = "DF_EXTRACT_PROMPT"
)

// ClassificationPlaceholder is replaced in the extraction prompt with the
// classification the previous task produced.
const ClassificationPlaceholder = "[ACTUAL_CLASSIFICATION]"

// Pipeline provides access to the document processing pipeline's resources.
type Pipeline interface {
	// Bucket returns the document bucket.
	Bucket() dfcdkbucket.Bucket

	// Queue returns the ingest queue fed by raw/ uploads.
	Queue() dfcdkqueue.Queue

	// Table returns the document tracking table.
	Table() dfcdktable.Table

	// EventBus returns the pipeline lifecycle event bus.
	EventBus() dfcdkeventbus.EventBus

	// StateMachine returns the processing state machine.
	StateMachine() awsstepfunctions.StateMachine
}

// Props configures the Pipeline construct.
type Props struct {
	// Identifier distinguishes this pipeline from others in the same
	// deployment. Defaults to "docs".
	Identifier *string
	// ModelID is the Bedrock model for classification and extraction.
	// Defaults to DefaultModelID.
	ModelID *string
	// ChunkThresholdPages is the page count above which a document is
	// chunked. Defaults to DefaultChunkThresholdPages.
	ChunkThresholdPages *float64
	// ChunkSizePages is the page count per chunk. Defaults to
	// DefaultChunkSizePages.
	ChunkSizePages *float64
	// ChunkOverlapPages is the page overlap between adjacent chunks.
	// Defaults to DefaultChunkOverlapPages.
	ChunkOverlapPages *float64
	// MaxConcurrentChunks bounds the Map state's parallelism. Defaults to 5.
	MaxConcurrentChunks *float64
	// ClassificationPrompt overrides the worker's built-in classification
	// prompt template.
	ClassificationPrompt *string
	// ExtractionPrompt overrides the worker's built-in extraction prompt
	// template. Must contain ClassificationPlaceholder.
	ExtractionPrompt *string
	// TaskTimeout bounds each Lambda task state. Defaults to 5 minutes.
	TaskTimeout awscdk.Duration
	// TaskRetryAttempts is the retry count for each task state, at most 10.
	// Defaults to 2.
	TaskRetryAttempts *float64
	// Encrypted creates a deployment KMS key and applies SSE-KMS to the
	// bucket and queues.
	Encrypted *bool
	// ReplicatedTable replicates the tracking table to all secondary regions.
	ReplicatedTable *bool
}

type pipeline struct {
	bucket       dfcdkbucket.Bucket
	queue        dfcdkqueue.Queue
	table        dfcdktable.Table
	eventBus     dfcdkeventbus.EventBus
	stateMachine awsstepfunctions.StateMachine
}

// New creates the document processing pipeline.
//
// The state machine branches on $.requiresChunking: small documents are
// classified and extracted as a single unit, large ones go through the
// chunk/map path. Both branches converge on aggregation, and chunk cleanup
// always runs last so failed runs fall back to the bucket's lifecycle rule.
func New(scope constructs.Construct, props Props) Pipeline {
	identifier := "docs"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}

	scope = constructs.NewConstruct(scope, jsii.String("Pipeline"+strcase.ToCamel(identifier)))
	con := &pipeline{}

	modelID := DefaultModelID
	if props.ModelID != nil && *props.ModelID != "" {
		modelID = *props.ModelID
	}
	chunkThreshold := float64(DefaultChunkThresholdPages)
	if props.ChunkThresholdPages != nil {
		chunkThreshold = *props.ChunkThresholdPages
	}
	chunkSize := float64(DefaultChunkSizePages)
	if props.ChunkSizePages != nil {
		chunkSize = *props.ChunkSizePages
	}
	chunkOverlap := float64(DefaultChunkOverlapPages)
	if props.ChunkOverlapPages != nil {
		chunkOverlap = *props.ChunkOverlapPages
	}
	maxConcurrency := 5.0
	if props.MaxConcurrentChunks != nil {
		maxConcurrency = *props.MaxConcurrentChunks
	}
	retryAttempts := 2.0
	if props.TaskRetryAttempts != nil {
		retryAttempts = *props.TaskRetryAttempts
	}

	if chunkOverlap >= chunkSize {
		panic(errors.Newf("chunk overlap (%v pages) must be smaller than the chunk size (%v pages)", chunkOverlap, chunkSize))
	}
	if retryAttempts < 0 || retryAttempts > 10 {
		panic(errors.Newf("task retry attempts must be in [0, 10], got %v", retryAttempts))
	}
	if props.ClassificationPrompt != nil && *props.ClassificationPrompt == "" {
		panic(errors.New("classification prompt override must not be empty"))
	}
	if props.ExtractionPrompt != nil && !strings.Contains(*props.ExtractionPrompt, ClassificationPlaceholder) {
		panic(errors.Newf("extraction prompt override must contain %s", ClassificationPlaceholder))
	}

	var encryptionKey dfcdkkey.Key
	var kmsKey awskms.IKey
	if props.Encrypted != nil && *props.Encrypted {
		encryptionKey = dfcdkkey.New(scope, dfcdkkey.Props{
			Identifier: jsii.String(identifier),
		})
		kmsKey = encryptionKey.Key()
	}

	con.queue = dfcdkqueue.New(scope, dfcdkqueue.Props{
		Identifier:    jsii.String(identifier + "-ingest"),
		EncryptionKey: kmsKey,
	})

	con.bucket = dfcdkbucket.New(scope, dfcdkbucket.Props{
		Identifier:        jsii.String(identifier),
		NotificationQueue: con.queue.Queue(),
		EncryptionKey:     kmsKey,
	})

	con.table = dfcdktable.New(scope, dfcdktable.Props{
		Identifier: jsii.String(identifier + "-tracking"),
		Replicated: props.ReplicatedTable,
	})

	con.eventBus = dfcdkeventbus.New(scope, dfcdkeventbus.Props{
		Identifier: jsii.String(identifier),
	})

	commonEnv := map[string]*string{
		EnvBucketName:          con.bucket.Bucket().BucketName(),
		EnvTableName:           con.table.Table().TableName(),
		EnvBusName:             con.eventBus.Bus().EventBusName(),
		EnvModelID:             jsii.String(modelID),
		EnvChunkThresholdPages: jsii.Sprintf("%d", int(chunkThreshold)),
		EnvChunkSizePages:      jsii.Sprintf("%d", int(chunkSize)),
		EnvChunkOverlapPages:   jsii.Sprintf("%d", int(chunkOverlap)),
	}
	if props.ClassificationPrompt != nil {
		commonEnv[EnvClassifyPrompt] = props.ClassificationPrompt
	}
	if props.ExtractionPrompt != nil {
		commonEnv[EnvExtractPrompt] = props.ExtractionPrompt
	}

	// Worker functions share one entry; each pass-through path yields a
	// dedicated function so the Step Functions tasks scale independently.
	chunkFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docworker"),
		PassThroughPath: jsii.String("/l/chunk-document"),
		Environment:     &commonEnv,
		MemorySize:      jsii.Number(1024),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(5)),
	})
	classifyFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docworker"),
		PassThroughPath: jsii.String("/l/classify-chunk"),
		Environment:     &commonEnv,
		MemorySize:      jsii.Number(512),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(5)),
	})
	extractFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docworker"),
		PassThroughPath: jsii.String("/l/extract-chunk"),
		Environment:     &commonEnv,
		MemorySize:      jsii.Number(512),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(5)),
	})
	aggregateFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docaggregate"),
		PassThroughPath: jsii.String("/l/aggregate-results"),
		Environment:     &commonEnv,
		MemorySize:      jsii.Number(256),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(1)),
	})
	failureFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docaggregate"),
		PassThroughPath: jsii.String("/l/record-failure"),
		Environment:     &commonEnv,
		Timeout:         awscdk.Duration_Minutes(jsii.Number(1)),
	})
	cleanupFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/doccleanup"),
		PassThroughPath: jsii.String("/l/cleanup-chunks"),
		Environment:     &commonEnv,
		Timeout:         awscdk.Duration_Minutes(jsii.Number(1)),
	})

	for _, fn := range []dfcdklambda.Lambda{chunkFn, classifyFn, extractFn} {
		con.bucket.GrantReadWrite(fn.Function())
		if encryptionKey != nil {
			encryptionKey.GrantEncryptDecrypt(fn.Function())
		}
	}
	grantInvokeModel(classifyFn, modelID)
	grantInvokeModel(extractFn, modelID)

	con.bucket.GrantReadWrite(aggregateFn.Function())
	con.table.GrantReadWriteData(aggregateFn.Function())
	con.table.GrantReadWriteData(failureFn.Function())
	con.eventBus.GrantPutEvents(aggregateFn.Function())
	con.eventBus.GrantPutEvents(failureFn.Function())
	con.bucket.GrantDeleteChunks(cleanupFn.Function())
	if encryptionKey != nil {
		encryptionKey.GrantEncryptDecrypt(aggregateFn.Function())
	}

	taskTimeout := props.TaskTimeout
	if taskTimeout == nil {
		taskTimeout = awscdk.Duration_Minutes(jsii.Number(5))
	}

	con.stateMachine = newStateMachine(scope, stateMachineProps{
		identifier:     identifier,
		maxConcurrency: maxConcurrency,
		taskTimeout:    taskTimeout,
		retryAttempts:  retryAttempts,
		chunkFn:        chunkFn,
		classifyFn:     classifyFn,
		extractFn:      extractFn,
		aggregateFn:    aggregateFn,
		failureFn:      failureFn,
		cleanupFn:      cleanupFn,
	})

	// The consumer starts executions, so it is created after the state
	// machine to avoid a circular reference through its environment.
	consumerEnv := make(map[string]*string, len(commonEnv)+1)
	for k, v := range commonEnv {
		consumerEnv[k] = v
	}
	consumerEnv[EnvStateMachineArn] = con.stateMachine.StateMachineArn()

	consumerFn := dfcdklambda.New(scope, dfcdklambda.Props{
		Entry:           jsii.String("backend/cmd/docconsumer"),
		PassThroughPath: jsii.String("/l/consume"),
		Environment:     &consumerEnv,
		Timeout:         awscdk.Duration_Minutes(jsii.Number(1)),
	})
	consumerFn.Function().AddEventSource(awslambdaeventsources.NewSqsEventSource(
		con.queue.Queue(), &awslambdaeventsources.SqsEventSourceProps{
			BatchSize:         jsii.Number(10),
			ReportBatchItemFailures: jsii.Bool(true),
		}))

	// The consumer never reads object bodies; page counts come from the
	// notification's object size, so it gets no bucket grant.
	con.queue.GrantConsumeMessages(consumerFn.Function())
	con.table.GrantReadWriteData(consumerFn.Function())
	con.eventBus.GrantPutEvents(consumerFn.Function())
	con.stateMachine.GrantStartExecution(consumerFn.Function())
	if encryptionKey != nil {
		encryptionKey.GrantEncryptDecrypt(consumerFn.Function())
	}

	return con
}

type stateMachineProps struct {
	identifier     string
	maxConcurrency float64
	taskTimeout    awscdk.Duration
	retryAttempts  float64
	chunkFn        dfcdklambda.Lambda
	classifyFn     dfcdklambda.Lambda
	extractFn      dfcdklambda.Lambda
	aggregateFn    dfcdklambda.Lambda
	failureFn      dfcdklambda.Lambda
	cleanupFn      dfcdklambda.Lambda
}

func newStateMachine(scope constructs.Construct, props stateMachineProps) awsstepfunctions.StateMachine {
	invoke := func(id string, fn dfcdklambda.Lambda) awsstepfunctionstasks.LambdaInvoke {
		task := awsstepfunctionstasks.NewLambdaInvoke(scope, jsii.String(id),
			&awsstepfunctionstasks.LambdaInvokeProps{
				LambdaFunction:      fn.Function(),
				PayloadResponseOnly: jsii.Bool(true),
				TaskTimeout:         awsstepfunctions.Timeout_Duration(props.taskTimeout),
			})
		task.AddRetry(&awsstepfunctions.RetryProps{
			Errors:      &[]*string{awsstepfunctions.Errors_ALL()},
			Interval:    awscdk.Duration_Seconds(jsii.Number(2)),
			BackoffRate: jsii.Number(2),
			MaxAttempts: jsii.Number(props.retryAttempts),
		})
		return task
	}

	recordFailure := awsstepfunctionstasks.NewLambdaInvoke(scope, jsii.String("RecordFailure"),
		&awsstepfunctionstasks.LambdaInvokeProps{
			LambdaFunction:      props.failureFn.Function(),
			PayloadResponseOnly: jsii.Bool(true),
			ResultPath:          jsii.String("$.failure"),
		})
	recordFailure.Next(awsstepfunctions.NewFail(scope, jsii.String("ProcessingFailed"),
		&awsstepfunctions.FailProps{
			Error: jsii.String("DocumentProcessingError"),
			Cause: jsii.String("See the tracking table entry for details"),
		}))

	catchProps := &awsstepfunctions.CatchProps{
		Errors:     &[]*string{awsstepfunctions.Errors_ALL()},
		ResultPath: jsii.String("$.error"),
	}

	chunk := invoke("ChunkDocument", props.chunkFn)
	chunk.AddCatch(recordFailure, catchProps)

	chunkClassify := invoke("ClassifyChunk", props.classifyFn)
	chunkExtract := invoke("ExtractChunk", props.extractFn)

	processChunks := awsstepfunctions.NewMap(scope, jsii.String("ProcessChunks"),
		&awsstepfunctions.MapProps{
			ItemsPath:      jsii.String("$.chunks"),
			ResultPath:     jsii.String("$.chunkResults"),
			MaxConcurrency: jsii.Number(props.maxConcurrency),
		})
	processChunks.ItemProcessor(chunkClassify.Next(chunkExtract), nil)
	processChunks.AddCatch(recordFailure, catchProps)

	classify := invoke("ClassifyDocument", props.classifyFn)
	classify.AddCatch(recordFailure, catchProps)
	extract := invoke("ExtractDocument", props.extractFn)
	extract.AddCatch(recordFailure, catchProps)

	aggregate := invoke("AggregateResults", props.aggregateFn)
	aggregate.AddCatch(recordFailure, catchProps)

	cleanup := invoke("CleanupChunks", props.cleanupFn)

	definition := awsstepfunctions.NewChoice(scope, jsii.String("CheckChunking"), nil).
		When(awsstepfunctions.Condition_BooleanEquals(jsii.String("$.requiresChunking"), jsii.Bool(true)),
			chunk.Next(processChunks).Next(aggregate), nil).
		Otherwise(classify.Next(extract).Next(aggregate))

	aggregate.Next(cleanup)

	logGroup := dfcdkloggroup.New(scope, "StateMachineLogs", dfcdkloggroup.Props{
		Purpose: jsii.String("document pipeline state machine"),
	}).LogGroup()

	return awsstepfunctions.NewStateMachine(scope, jsii.String("StateMachine"),
		&awsstepfunctions.StateMachineProps{
			StateMachineName: jsii.String(dfcdkutil.ResourceName(scope, props.identifier+"-pipeline", dfcdkutil.CasingKebab)),
			DefinitionBody:   awsstepfunctions.DefinitionBody_FromChainable(definition),
			Timeout:          awscdk.Duration_Hours(jsii.Number(1)),
			TracingEnabled:   jsii.Bool(true),
			Logs: &awsstepfunctions.LogOptions{
				Destination: logGroup,
				Level:       awsstepfunctions.LogLevel_ALL,
			},
		})
}

// grantInvokeModel allows calling the configured foundation model from any
// region. Inference profiles resolve to region-prefixed model ARNs, so the
// grant targets the model ID across all partitions of the account.
func grantInvokeModel(fn dfcdklambda.Lambda, modelID string) {
	fn.Function().AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: &[]*string{
			jsii.String("bedrock:InvokeModel"),
			jsii.String("bedrock:InvokeModelWithResponseStream"),
		},
		Resources: &[]*string{
			jsii.Sprintf("arn:aws:bedrock:*::foundation-model/%s", modelID),
			jsii.String("arn:aws:bedrock:*:*:inference-profile/*"),
		},
	}))
}

func (p *pipeline) Bucket() dfcdkbucket.Bucket {
	return p.bucket
}

func (p *pipeline) Queue() dfcdkqueue.Queue {
	return p.queue
}

func (p *pipeline) Table() dfcdktable.Table {
	return p.table
}

func (p *pipeline) EventBus() dfcdkeventbus.EventBus {
	return p.eventBus
}

func (p *pipeline) StateMachine() awsstepfunctions.StateMachine {
	return p.stateMachine
}
