package app

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/config"
	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/lock"
	"github.com/stacklok/coordination-registry/internal/notify"
	"github.com/stacklok/coordination-registry/internal/persistence"
	"github.com/stacklok/coordination-registry/internal/registry"
	"github.com/stacklok/coordination-registry/internal/remote"
	"github.com/stacklok/coordination-registry/internal/service"
	"github.com/stacklok/coordination-registry/internal/supervision"
	"github.com/stacklok/coordination-registry/internal/telemetry"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	tracerName = "github.com/stacklok/coordination-registry"
)

// AppOption configures the application builder
type AppOption func(*appConfig) error

type appConfig struct {
	config *config.Config
	logger *zap.Logger

	address        string
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler

	// Overrides, mostly for tests
	gateway        persistence.Gateway
	resourceClient remote.ResourceClient
	dispatcher     notify.Dispatcher
	notifier       notify.CapabilityNotifier
}

func baseConfig(opts ...AppOption) (*appConfig, error) {
	cfg := &appConfig{
		logger:         zap.NewNop(),
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetAddress()
	}
	return cfg, nil
}

// NewCoordinationApp builds every component, restores the stored snapshot
// and registers the resources listed in the configuration
func NewCoordinationApp(ctx context.Context, opts ...AppOption) (*CoordinationApp, error) {
	b, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	cfg := b.config

	metrics, err := buildMetrics(b.meterProvider)
	if err != nil {
		return nil, err
	}

	var tracer trace.Tracer
	if b.tracerProvider != nil {
		tracer = b.tracerProvider.Tracer(tracerName)
	}

	reg := registry.New(
		registry.WithLockManager(lock.NewManager()),
		registry.WithLogger(b.logger.Named("registry")),
		registry.WithParamValidation(cfg.ParamValidation()),
	)

	if b.resourceClient == nil {
		b.resourceClient = remote.NewHTTPResourceClient(
			httpclient.NewDefaultClient(httpclient.DefaultTimeout),
			remote.WithProbeTimeout(cfg.Supervision.GetProbeTimeout()),
		)
	}

	notifyClient := httpclient.NewDefaultClient(cfg.Notification.GetTimeout())
	notifyOpts := []notify.Option{
		notify.WithMaxInFlight(cfg.Notification.GetMaxInFlight()),
		notify.WithRateLimit(cfg.Notification.GetRatePerSecond()),
		notify.WithCallbackRetries(cfg.Notification.GetCallbackRetries(), cfg.Notification.GetCallbackBackoff()),
		notify.WithLogger(b.logger.Named("notify")),
		notify.WithMetrics(metrics.notification),
		notify.WithTracer(tracer),
	}
	if b.dispatcher == nil {
		b.dispatcher = notify.NewHTTPDispatcher(reg, notifyClient, notifyOpts...)
	}
	if b.notifier == nil {
		b.notifier = notify.NewHTTPCapabilityNotifier(reg, notifyClient, notifyOpts...)
	}

	if b.gateway == nil {
		b.gateway, err = persistence.Open(cfg.GetPersistence(), persistence.WithLogger(b.logger.Named("persistence")))
		if err != nil {
			return nil, fmt.Errorf("failed to open persistence: %w", err)
		}
	}

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = b.gateway.Close()
		}
	}()

	svc := service.New(reg, b.gateway, b.resourceClient,
		service.WithLogger(b.logger.Named("service")),
		service.WithMetrics(metrics.registry),
		service.WithCapabilityNotifier(b.notifier),
	)
	if err := svc.LoadSnapshot(ctx); err != nil {
		return nil, err
	}
	if err := RegisterStaticResources(ctx, svc, cfg.Resources, b.logger); err != nil {
		return nil, fmt.Errorf("failed to register configured resources: %w", err)
	}

	sup := supervision.New(reg, b.resourceClient, b.dispatcher,
		supervision.WithInterval(cfg.Supervision.GetInterval()),
		supervision.WithOwnerCheckInterval(cfg.Supervision.GetOwnerCheckInterval()),
		supervision.WithDeadThreshold(cfg.Supervision.GetDeadThreshold()),
		supervision.WithMaxInFlight(cfg.Supervision.GetMaxInFlight()),
		supervision.WithEnableRetries(cfg.Supervision.GetEnableRetries()),
		supervision.WithEnableBackoff(cfg.Supervision.GetEnableBackoff()),
		supervision.WithSnapshotter(svc),
		supervision.WithOwnerRemover(svc),
		supervision.WithCapabilityNotifier(b.notifier),
		supervision.WithMetrics(metrics.supervision),
		supervision.WithLogger(b.logger.Named("supervision")),
		supervision.WithTracer(tracer),
	)

	httpServer := &http.Server{
		Addr:              b.address,
		Handler:           newOpsRouter(svc, b.logger.Named("http"), metrics.http, b.metricsHandler, b.requestTimeout),
		ReadTimeout:       b.readTimeout,
		ReadHeaderTimeout: b.readTimeout,
		WriteTimeout:      b.writeTimeout,
		IdleTimeout:       b.idleTimeout,
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &CoordinationApp{
		config: cfg,
		components: &AppComponents{
			Registry:   reg,
			Service:    svc,
			Supervisor: sup,
			Gateway:    b.gateway,
		},
		httpServer: httpServer,
		logger:     b.logger,
		ctx:        appCtx,
		cancelFunc: cancel,
		supervised: make(chan struct{}),
	}, nil
}

type appMetrics struct {
	supervision  *telemetry.SupervisionMetrics
	notification *telemetry.NotificationMetrics
	registry     *telemetry.RegistryMetrics
	http         *telemetry.HTTPMetrics
}

// buildMetrics creates the metric recorders. A nil provider yields nil
// recorders, which record nothing.
func buildMetrics(mp metric.MeterProvider) (*appMetrics, error) {
	var (
		m   appMetrics
		err error
	)
	if m.supervision, err = telemetry.NewSupervisionMetrics(mp); err != nil {
		return nil, fmt.Errorf("failed to create supervision metrics: %w", err)
	}
	if m.notification, err = telemetry.NewNotificationMetrics(mp); err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}
	if m.registry, err = telemetry.NewRegistryMetrics(mp); err != nil {
		return nil, fmt.Errorf("failed to create registry metrics: %w", err)
	}
	if m.http, err = telemetry.NewHTTPMetrics(mp); err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	return &m, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) AppOption {
	return func(cfg *appConfig) error {
		cfg.config = c
		return nil
	}
}

// WithLogger sets the root logger
func WithLogger(l *zap.Logger) AppOption {
	return func(cfg *appConfig) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	}
}

// WithAddress overrides the ops server address from the configuration
func WithAddress(addr string) AppOption {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMeterProvider enables metrics recording
func WithMeterProvider(mp metric.MeterProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider enables tracing of supervision cycles and deliveries
func WithTracerProvider(tp trace.TracerProvider) AppOption {
	return func(cfg *appConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts h on /metrics
func WithMetricsHandler(h http.Handler) AppOption {
	return func(cfg *appConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// WithGateway injects the persistence gateway instead of opening one from the configuration
func WithGateway(g persistence.Gateway) AppOption {
	return func(cfg *appConfig) error {
		cfg.gateway = g
		return nil
	}
}

// WithResourceClient injects the client used to reach resources
func WithResourceClient(c remote.ResourceClient) AppOption {
	return func(cfg *appConfig) error {
		cfg.resourceClient = c
		return nil
	}
}

// WithDispatcher injects the status notification dispatcher
func WithDispatcher(d notify.Dispatcher) AppOption {
	return func(cfg *appConfig) error {
		cfg.dispatcher = d
		return nil
	}
}

// WithCapabilityNotifier injects the notifier of capability watches
func WithCapabilityNotifier(n notify.CapabilityNotifier) AppOption {
	return func(cfg *appConfig) error {
		cfg.notifier = n
		return nil
	}
}
