package dflwa

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 10 * time.Second
	stopTimeout       = 10 * time.Second
)

// HealthHandlerFunc handles the LWA readiness check request.
type HealthHandlerFunc = func(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error

// appOptions collects the configuration from Option values.
type appOptions struct {
	clientFactories []*ClientFactory
	fxOptions       []fx.Option
	healthHandler   HealthHandlerFunc
}

// Option configures an App.
type Option func(*appOptions)

// WithAWSClient registers an AWS SDK v2 client with the app. The client is
// built once at startup from the instrumented aws.Config and retrieved in
// handlers via AWS.
func WithAWSClient[T any](factory func(aws.Config) *T, opts ...ClientOption) Option {
	return func(o *appOptions) {
		o.clientFactories = append(o.clientFactories, RegisterAWSClient(factory, opts...))
	}
}

// WithFx adds custom fx options (providers, invocations) to the app.
func WithFx(opts ...fx.Option) Option {
	return func(o *appOptions) {
		o.fxOptions = append(o.fxOptions, opts...)
	}
}

// WithHealthHandler replaces the default readiness check handler.
func WithHealthHandler(h HealthHandlerFunc) Option {
	return func(o *appOptions) {
		o.healthHandler = h
	}
}

// awsClients maps registered client keys to instantiated SDK clients.
type awsClients map[string]any

// App is a fully wired LWA application. Create one with NewApp and start it
// with Run (blocking, signal-aware) or Start (context-driven).
type App[E Environment] struct {
	fxApp *fx.App
}

// NewApp creates an application from a routing function and options.
//
// The register function receives the *Mux plus any dependencies provided via
// WithFx, and is called during startup to register routes:
//
//	dflwa.NewApp[Env](
//	    func(m *dflwa.Mux, h *Handlers) {
//	        m.HandleFunc("GET /documents/{id}", h.GetDocument, "get-document")
//	    },
//	    dflwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
//	        return dynamodb.NewFromConfig(cfg)
//	    }),
//	    dflwa.WithFx(fx.Provide(NewHandlers)),
//	).Run()
func NewApp[E Environment](register any, opts ...Option) *App[E] {
	options := &appOptions{
		healthHandler: defaultHealthHandler,
	}
	for _, opt := range opts {
		opt(options)
	}

	fxOpts := []fx.Option{
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			ParseEnv[E](),
			func(env E) Environment { return env },
			NewLogger,
			NewTracerProvider,
			NewPropagator,
			provideAWSConfig,
			NewMux,
			NewRuntime[E],
			provideAWSClients(options.clientFactories),
			provideDeps[E],
		),
	}
	fxOpts = append(fxOpts, options.fxOptions...)
	fxOpts = append(fxOpts,
		fx.Invoke(register),
		fx.Invoke(serveHTTP[E](options.healthHandler)),
	)

	return &App[E]{fxApp: fx.New(fxOpts...)}
}

// Run starts the application and blocks until it receives SIGINT or SIGTERM.
func (a *App[E]) Run() {
	a.fxApp.Run()
}

// Start starts the application and blocks until the context is canceled,
// then shuts it down gracefully.
func (a *App[E]) Start(ctx context.Context) error {
	if err := a.fxApp.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.fxApp.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.fxApp.Stop(stopCtx)
}

// provideAWSClients builds the registered clients once from the base config.
func provideAWSClients(factories []*ClientFactory) func(aws.Config, Environment) awsClients {
	return func(cfg aws.Config, env Environment) awsClients {
		clients := make(awsClients, len(factories))
		for _, f := range factories {
			key, client := f.build(cfg, env)
			clients[key] = client
		}
		return clients
	}
}

// provideDeps assembles the per-request dependency container.
func provideDeps[E Environment](logger *zap.Logger, env E, environment Environment, mux *Mux, clients awsClients) *deps {
	return &deps{
		logger:      logger,
		env:         env,
		environment: environment,
		mux:         mux,
		awsClients:  clients,
	}
}

// defaultHealthHandler answers the LWA readiness check.
func defaultHealthHandler(_ context.Context, w bhttp.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("ok"))
	return err
}

// serveHTTP wires the middlewares, registers the health route and runs the
// HTTP server for the lifetime of the fx app.
func serveHTTP[E Environment](health HealthHandlerFunc) func(
	lc fx.Lifecycle,
	env E,
	mux *Mux,
	d *deps,
	tp trace.TracerProvider,
	prop propagation.TextMapPropagator,
	logger *zap.Logger,
) {
	return func(
		lc fx.Lifecycle,
		env E,
		mux *Mux,
		d *deps,
		tp trace.TracerProvider,
		prop propagation.TextMapPropagator,
		logger *zap.Logger,
	) {
		mux.Use(withDeps(d), withLWAContext())
		mux.HandleFunc("GET "+env.readinessCheckPath(), health)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", env.port()),
			Handler:           withTracing(tp, prop, env.serviceName(), env.readinessCheckPath())(mux),
			ReadHeaderTimeout: readHeaderTimeout,
		}

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return errors.Wrapf(err, "failed to listen on %s", srv.Addr)
				}
				go func() {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("http server stopped", zap.Error(err))
					}
				}()
				logger.Info("http server started", zap.String("addr", srv.Addr))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}
}
