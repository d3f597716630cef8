package dflwa

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Primary wraps an AWS client for the primary deployment region.
// Use this when registering and injecting clients that must target DF_PRIMARY_REGION.
//
// Registration:
//
//	dflwa.WithAWSClient(func(cfg aws.Config) *dflwa.Primary[sfn.Client] {
//	    return dflwa.NewPrimary(sfn.NewFromConfig(cfg))
//	}, dflwa.ForPrimaryRegion())
//
// Injection:
//
//	func NewHandlers(sfn *dflwa.Primary[sfn.Client]) *Handlers
//
// Usage:
//
//	h.sfn.Client.StartExecution(ctx, ...)
type Primary[T any] struct {
	Client *T
}

// NewPrimary creates a Primary wrapper for an AWS client configured for the
// primary region. Use this in your client factory when registering with
// ForPrimaryRegion().
func NewPrimary[T any](client *T) *Primary[T] {
	return &Primary[T]{Client: client}
}

// InRegion wraps an AWS client configured for a specific fixed region.
// Use this when registering and injecting clients that must target a specific region.
//
// Registration:
//
//	dflwa.WithAWSClient(func(cfg aws.Config) *dflwa.InRegion[sqs.Client] {
//	    return dflwa.NewInRegion(sqs.NewFromConfig(cfg), "us-east-1")
//	}, dflwa.ForRegion("us-east-1"))
//
// Injection:
//
//	func NewHandlers(sqs *dflwa.InRegion[sqs.Client]) *Handlers
//
// Usage:
//
//	h.sqs.Client.SendMessage(ctx, ...)
//	region := h.sqs.Region // "us-east-1"
type InRegion[T any] struct {
	Client *T
	Region string
}

// NewInRegion creates an InRegion wrapper for an AWS client configured for a
// fixed region. Use this in your client factory when registering with
// ForRegion().
func NewInRegion[T any](client *T, region string) *InRegion[T] {
	return &InRegion[T]{Client: client, Region: region}
}

// clientOptions holds configuration for AWS client registration.
type clientOptions struct {
	region Region
}

// ClientOption configures AWS client registration.
type ClientOption func(*clientOptions)

// ForPrimaryRegion configures the client to use the DF_PRIMARY_REGION env var.
// Use this for cross-region operations that must target the primary deployment region.
func ForPrimaryRegion() ClientOption {
	return func(o *clientOptions) {
		o.region = PrimaryRegion()
	}
}

// ForRegion configures the client to use a specific fixed region.
func ForRegion(region string) ClientOption {
	return func(o *clientOptions) {
		o.region = FixedRegion(region)
	}
}

const awsConfigTimeout = 10 * time.Second

// NewAWSConfig loads the default AWS SDK v2 configuration.
func NewAWSConfig(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// provideAWSConfig is an fx provider that loads AWS config with a timeout.
// It automatically instruments the config with OpenTelemetry for AWS SDK tracing.
// The TracerProvider and Propagator are explicitly injected to avoid global state.
func provideAWSConfig(lc fx.Lifecycle, tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
	defer cancel()
	cfg, err := NewAWSConfig(ctx)
	if err != nil {
		return cfg, err
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)
	return cfg, nil
}

// ClientFactory describes a registered AWS client: the region it targets and
// how to build it from a base aws.Config. Factories are collected by NewApp
// and instantiated once, at startup.
type ClientFactory struct {
	Region Region

	build func(cfg aws.Config, env Environment) (key string, client any)
}

// RegisterAWSClient creates a ClientFactory for an AWS SDK v2 client. The
// factory receives an aws.Config with the region already configured.
//
// For local region clients (default), register the constructor directly:
//
//	dflwa.RegisterAWSClient(func(cfg aws.Config) *dynamodb.Client {
//	    return dynamodb.NewFromConfig(cfg)
//	})
//
// Use ForPrimaryRegion or ForRegion to target other regions; retrieve the
// client in handlers with the matching region argument to AWS.
func RegisterAWSClient[T any](factory func(aws.Config) *T, opts ...ClientOption) *ClientFactory {
	options := &clientOptions{
		region: LocalRegion(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &ClientFactory{
		Region: options.region,
		build: func(cfg aws.Config, env Environment) (string, any) {
			awsCfg := cfg.Copy()
			resolved := options.region.resolve(env)
			if resolved != "" {
				awsCfg.Region = resolved
			}
			return clientKey(typeKey[T](), resolved), factory(awsCfg)
		},
	}
}

// AWSClientProvider creates an fx.Option that provides an AWS client for
// injection into constructors, as an alternative to context retrieval via AWS.
//
// For primary region clients, wrap with Primary[T]:
//
//	dflwa.AWSClientProvider(func(cfg aws.Config) *dflwa.Primary[sfn.Client] {
//	    return dflwa.NewPrimary(sfn.NewFromConfig(cfg))
//	}, dflwa.ForPrimaryRegion())
//
// For fixed region clients, wrap with InRegion[T]:
//
//	dflwa.AWSClientProvider(func(cfg aws.Config) *dflwa.InRegion[sqs.Client] {
//	    return dflwa.NewInRegion(sqs.NewFromConfig(cfg), "us-east-1")
//	}, dflwa.ForRegion("us-east-1"))
func AWSClientProvider[T any](factory func(aws.Config) T, opts ...ClientOption) fx.Option {
	options := &clientOptions{
		region: LocalRegion(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return fx.Provide(func(cfg aws.Config, env Environment) T {
		awsCfg := cfg.Copy()
		if options.region != nil {
			r := options.region.resolve(env)
			if r != "" {
				awsCfg.Region = r
			}
		}
		return factory(awsCfg)
	})
}

// clientKey combines a client type with the region it was registered for.
func clientKey(typ, region string) string {
	if region == "" {
		return typ
	}
	return typ + "@" + region
}
