// Package dfcdkbucket provides a reusable S3 bucket construct with the
// document pipeline's prefix and lifecycle conventions.
//
// Incoming documents are written under "raw/". The chunking step writes
// temporary page-range objects under "chunks/", which expire via a lifecycle
// rule. Final results land under "processed/". Buckets created with this
// construct block all public access and enforce TLS.
package dfcdkbucket

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3notifications"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
	"github.com/iancoleman/strcase"
)

// Well-known object key prefixes within a pipeline bucket.
const (
	// RawPrefix is where callers upload documents to trigger processing.
	RawPrefix = "raw/"
	// ChunksPrefix holds temporary page-range objects written by the
	// chunking step. Objects here expire via lifecycle rule.
	ChunksPrefix = "chunks/"
	// ProcessedPrefix holds final extraction results.
	ProcessedPrefix = "processed/"
)

// Bucket provides access to an S3 bucket with pipeline prefix conventions.
type Bucket interface {
	// Bucket returns the underlying S3 bucket.
	Bucket() awss3.IBucket

	// BucketName returns the physical bucket name.
	BucketName() string

	// GrantRead grants read permission on all objects.
	GrantRead(grantee awsiam.IGrantable)

	// GrantReadWrite grants read/write permission on all objects.
	GrantReadWrite(grantee awsiam.IGrantable)

	// GrantDeleteChunks grants delete permission restricted to the chunks/ prefix.
	// The cleanup step uses this; nothing else may delete pipeline objects.
	GrantDeleteChunks(grantee awsiam.IGrantable)
}

// Props configures the Bucket construct.
type Props struct {
	// Identifier distinguishes this bucket from others in the same deployment.
	// Used in resource names. Defaults to "documents".
	Identifier *string
	// ChunkExpiryDays is the lifecycle expiry for objects under chunks/.
	// Defaults to 7. The cleanup step deletes chunks eagerly after
	// aggregation; the lifecycle rule is the backstop for failed runs.
	ChunkExpiryDays *float64
	// NotificationQueue, when set, receives object-created events for
	// uploads under raw/.
	NotificationQueue awssqs.IQueue
	// EncryptionKey enables SSE-KMS with the given key. When nil, the
	// bucket uses S3-managed encryption.
	EncryptionKey awskms.IKey
	// Versioned enables object versioning. Noncurrent versions expire
	// after 30 days.
	Versioned *bool
}

type bucket struct {
	bucket awss3.IBucket
}

// New creates a Bucket construct with the pipeline's conventions applied.
func New(scope constructs.Construct, props Props) Bucket {
	identifier := "documents"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}
	scope = constructs.NewConstruct(scope, jsii.String("Bucket"+strcase.ToCamel(identifier)))
	con := &bucket{}

	chunkExpiryDays := 7.0
	if props.ChunkExpiryDays != nil {
		chunkExpiryDays = *props.ChunkExpiryDays
	}

	encryption := awss3.BucketEncryption_S3_MANAGED
	if props.EncryptionKey != nil {
		encryption = awss3.BucketEncryption_KMS
	}

	lifecycleRules := []*awss3.LifecycleRule{
		{
			Id:         jsii.String("expire-chunks"),
			Prefix:     jsii.String(ChunksPrefix),
			Expiration: awscdk.Duration_Days(jsii.Number(chunkExpiryDays)),
		},
	}
	if props.Versioned != nil && *props.Versioned {
		lifecycleRules = append(lifecycleRules, &awss3.LifecycleRule{
			Id:                          jsii.String("expire-noncurrent"),
			NoncurrentVersionExpiration: awscdk.Duration_Days(jsii.Number(30)),
		})
	}

	con.bucket = awss3.NewBucket(scope, jsii.String("Bucket"), &awss3.BucketProps{
		BucketName:        jsii.String(dfcdkutil.ResourceName(scope, identifier+"-bucket", dfcdkutil.CasingKebab)),
		Encryption:        encryption,
		EncryptionKey:     props.EncryptionKey,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		Versioned:         props.Versioned,
		LifecycleRules:    &lifecycleRules,
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	if props.NotificationQueue != nil {
		con.bucket.AddEventNotification(
			awss3.EventType_OBJECT_CREATED,
			awss3notifications.NewSqsDestination(props.NotificationQueue),
			&awss3.NotificationKeyFilter{Prefix: jsii.String(RawPrefix)},
		)
	}

	return con
}

func (b *bucket) Bucket() awss3.IBucket {
	return b.bucket
}

func (b *bucket) BucketName() string {
	return *b.bucket.BucketName()
}

func (b *bucket) GrantRead(grantee awsiam.IGrantable) {
	b.bucket.GrantRead(grantee, nil)
}

func (b *bucket) GrantReadWrite(grantee awsiam.IGrantable) {
	b.bucket.GrantReadWrite(grantee, nil)
}

func (b *bucket) GrantDeleteChunks(grantee awsiam.IGrantable) {
	b.bucket.GrantDelete(grantee, jsii.String(ChunksPrefix+"*"))
}
