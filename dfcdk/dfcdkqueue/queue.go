// Package dfcdkqueue provides a reusable SQS queue construct with a
// dead-letter queue, encryption, and long polling defaults.
//
// The queue is the ingest edge of the document pipeline: S3 object-created
// notifications land here and are drained by the consumer function. Messages
// that fail repeatedly are shunted to the dead-letter queue for inspection.
package dfcdkqueue

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
	"github.com/iancoleman/strcase"
)

// Queue provides access to an SQS queue with a dead-letter queue.
type Queue interface {
	// Queue returns the main queue.
	Queue() awssqs.IQueue

	// DeadLetterQueue returns the dead-letter queue.
	DeadLetterQueue() awssqs.IQueue

	// GrantConsumeMessages grants permission to receive and delete messages.
	GrantConsumeMessages(grantee awsiam.IGrantable)

	// GrantSendMessages grants permission to send messages to the main queue.
	GrantSendMessages(grantee awsiam.IGrantable)
}

// Props configures the Queue construct.
type Props struct {
	// Identifier distinguishes this queue from others in the same deployment.
	// Used in resource names. Defaults to "ingest".
	Identifier *string
	// VisibilityTimeout is how long a received message stays invisible before
	// redelivery. Must cover the consumer's worst-case processing time.
	// Defaults to 5 minutes.
	VisibilityTimeout awscdk.Duration
	// MaxReceiveCount is the number of delivery attempts before a message is
	// moved to the dead-letter queue. Defaults to 3.
	MaxReceiveCount *float64
	// EncryptionKey enables SSE-KMS with the given key. When nil, the queue
	// uses SQS-managed encryption.
	EncryptionKey awskms.IKey
}

type queue struct {
	main awssqs.IQueue
	dlq  awssqs.IQueue
}

// New creates a Queue construct with a dead-letter queue.
//
// The main queue uses long polling (20s receive wait) and 14-day retention on
// the dead-letter queue so failed messages survive long enough to diagnose.
func New(scope constructs.Construct, props Props) Queue {
	identifier := "ingest"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}
	scope = constructs.NewConstruct(scope, jsii.String("Queue"+strcase.ToCamel(identifier)))
	con := &queue{}

	visibilityTimeout := props.VisibilityTimeout
	if visibilityTimeout == nil {
		visibilityTimeout = awscdk.Duration_Minutes(jsii.Number(5))
	}

	maxReceiveCount := 3.0
	if props.MaxReceiveCount != nil {
		maxReceiveCount = *props.MaxReceiveCount
	}

	encryption := awssqs.QueueEncryption_SQS_MANAGED
	if props.EncryptionKey != nil {
		encryption = awssqs.QueueEncryption_KMS
	}

	con.dlq = awssqs.NewQueue(scope, jsii.String("DLQ"), &awssqs.QueueProps{
		QueueName:       jsii.String(dfcdkutil.ResourceName(scope, identifier+"-dlq", dfcdkutil.CasingKebab)),
		RetentionPeriod: awscdk.Duration_Days(jsii.Number(14)),
		Encryption:      encryption,
		EncryptionMasterKey: props.EncryptionKey,
	})

	con.main = awssqs.NewQueue(scope, jsii.String("Queue"), &awssqs.QueueProps{
		QueueName:           jsii.String(dfcdkutil.ResourceName(scope, identifier+"-queue", dfcdkutil.CasingKebab)),
		VisibilityTimeout:   visibilityTimeout,
		ReceiveMessageWaitTime: awscdk.Duration_Seconds(jsii.Number(20)),
		Encryption:          encryption,
		EncryptionMasterKey: props.EncryptionKey,
		EnforceSSL:          jsii.Bool(true),
		DeadLetterQueue: &awssqs.DeadLetterQueue{
			Queue:           con.dlq,
			MaxReceiveCount: jsii.Number(maxReceiveCount),
		},
	})

	return con
}

func (q *queue) Queue() awssqs.IQueue {
	return q.main
}

func (q *queue) DeadLetterQueue() awssqs.IQueue {
	return q.dlq
}

func (q *queue) GrantConsumeMessages(grantee awsiam.IGrantable) {
	q.main.GrantConsumeMessages(grantee)
}

func (q *queue) GrantSendMessages(grantee awsiam.IGrantable) {
	q.main.GrantSendMessages(grantee)
}
