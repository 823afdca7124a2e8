package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"idcard/internal/adapters/requests"
	"idcard/internal/audit"
	"idcard/internal/blob"
	"idcard/internal/cards"
	"idcard/internal/config"
	"idcard/internal/core"
	"idcard/internal/logger"
	"idcard/internal/render"
	"idcard/internal/telemetry"
)

// app holds the wired registry for one process.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	service  *core.Service
	handler  *requests.Handler
	archive  *cards.Archive
	registry *prometheus.Registry
	notifier *audit.Notifier
	closers  []func(context.Context) error
}

// loadConfig is replaced in tests.
var loadConfig = config.Load

type appSettings struct {
	sinks    []audit.Sink
	traceOut io.Writer
}

type appOption func(*appSettings)

// withSinks adds audit sinks to the configured ones.
func withSinks(sinks ...audit.Sink) appOption {
	return func(s *appSettings) { s.sinks = append(s.sinks, sinks...) }
}

// withTraceOutput writes registry spans to w as JSON lines instead of
// exporting them over OTLP.
func withTraceOutput(w io.Writer) appOption {
	return func(s *appSettings) { s.traceOut = w }
}

// newApp opens storage, blob archive, audit sinks and telemetry from cfg.
func newApp(ctx context.Context, cfg config.Config, opts ...appOption) (_ *app, err error) {
	var settings appSettings
	for _, opt := range opts {
		opt(&settings)
	}
	a := &app{cfg: cfg, logger: logger.Setup(cfg), registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	a.closers = append(a.closers, tel.Shutdown)

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewPrometheusRecorder(a.registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store, err := core.OpenMemberStore(ctx, core.StorageOptions{
		Driver:         core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:     cfg.Storage.SQLitePath,
		PostgresDSN:    cfg.Storage.PostgresDSN,
		RedisURL:       cfg.Storage.RedisURL,
		RedisNamespace: cfg.Storage.RedisNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("open member store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	blobs, err := blob.Open(ctx, blob.Options{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:    cfg.Blob.S3Bucket,
			Region:    cfg.Blob.S3Region,
			Endpoint:  cfg.Blob.S3Endpoint,
			PathStyle: cfg.Blob.S3PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open card archive: %w", err)
	}
	a.archive = cards.NewArchive(blobs)

	var rdb *redis.Client
	if cfg.Audit.HasSink(audit.SinkRedis) {
		ropts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(ropts)
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	}
	var names []string
	for _, s := range cfg.Audit.Sinks {
		if s != "discord" {
			names = append(names, s)
		}
	}
	sinks, closeSinks, err := audit.OpenSinks(audit.Options{
		Sinks:        names,
		RedisChannel: cfg.Audit.RedisChannel,
		KafkaBrokers: cfg.Audit.KafkaBrokers,
		KafkaTopic:   cfg.Audit.KafkaTopic,
		AMQPURL:      cfg.Audit.AMQPURL,
		AMQPExchange: cfg.Audit.AMQPExchange,
	}, rdb, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return closeSinks() })
	a.notifier = audit.NewNotifier(append(sinks, settings.sinks...), audit.WithLogger(a.logger))
	a.closers = append(a.closers, a.notifier.Close)

	theme := render.DefaultTheme()
	if cfg.Card.ThemeFile != "" {
		if theme, err = render.LoadTheme(cfg.Card.ThemeFile); err != nil {
			return nil, err
		}
	}
	renderer, err := render.New(theme)
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}

	var tracer core.Tracer = telemetry.NewOTelTracer(nil)
	if settings.traceOut != nil {
		tracer = core.NewJSONTracer(settings.traceOut)
	}
	a.service = core.NewService(store,
		core.WithLogger(a.logger),
		core.WithAuditNotifier(a.notifier),
		core.WithMetricsRecorder(fanout{metrics, registryVars()}),
		core.WithTracer(tracer),
		core.WithMaxIDAttempts(cfg.Registry.MaxIDAttempts),
	)
	a.handler = requests.NewHandler(a.service, renderer,
		requests.WithArchive(a.archive),
		requests.WithLogger(a.logger),
		requests.WithAvatarTimeout(cfg.Card.AvatarTimeout),
		requests.WithCardURLExpiry(cfg.Card.URLExpiry),
	)
	return a, nil
}

var (
	varsOnce sync.Once
	vars     *core.ExpvarMetricsRecorder
)

// registryVars publishes the expvar recorder once per process.
func registryVars() *core.ExpvarMetricsRecorder {
	varsOnce.Do(func() { vars = core.NewExpvarMetricsRecorder("idcard_registry") })
	return vars
}

// fanout forwards observations to several recorders.
type fanout []core.MetricsRecorder

func (f fanout) Observe(ctx context.Context, operation string, success bool, d time.Duration) {
	for _, r := range f {
		r.Observe(ctx, operation, success, d)
	}
}

// Close releases resources in reverse order of acquisition. The notifier is
// drained before sinks and the store close.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp loads configuration, builds the app for cmd, runs fn and closes the app.
func withApp(cmd *cobra.Command, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var opts []appOption
	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		opts = append(opts, withTraceOutput(cmd.ErrOrStderr()))
	}
	a, err := newApp(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()
	return fn(a)
}
