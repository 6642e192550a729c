// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chat provides the conversational orchestration service.
//
// This package contains the main service type that coordinates all
// components: HTTP routing, the chat pipeline, the LLM client, the
// conversation store, web search, upload extraction, and observability
// infrastructure.
//
// # Enterprise Integration
//
// The service supports dependency injection via extensions.ServiceOptions,
// enabling an enterprise distribution to provide custom implementations of:
//   - AuthProvider: Custom authentication (JWT, API keys)
//   - AuditLogger: Compliance audit logging
//   - MessageFilter: PII detection and redaction
//
// # Usage
//
// Open source (uses no-op defaults):
//
//	cfg := chat.Config{Port: 12215}
//	svc, err := chat.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/extract"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/pipeline"
	"github.com/AleutianAI/AleutianChat/services/chat/routes"
	"github.com/AleutianAI/AleutianChat/services/chat/search"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the chat service.
//
// Run() blocks and should only be called once per instance. Router()
// exposes the configured Gin engine for integration tests.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	// Callers must not modify the router.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds chat service configuration options.
//
// All fields are optional; defaults are applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12215
	Port int `yaml:"port"`

	// LLMBackend specifies the LLM provider.
	// Valid values: "openai", "ollama". Default: "openai"
	LLMBackend string `yaml:"llm_backend"`

	// Model is the default completion model id. Empty uses the backend's
	// own default.
	Model string `yaml:"model"`

	// ReasoningModel is the model id for deep-reasoning requests.
	// Empty reuses Model.
	ReasoningModel string `yaml:"reasoning_model"`

	// Temperature for main completions. Nil defaults to 0.6; an explicit
	// 0 is honored.
	Temperature *float32 `yaml:"temperature"`

	// MaxTokens caps main completions. 0 uses the backend default.
	MaxTokens int `yaml:"max_tokens"`

	// StorePath is the directory for the conversation database.
	// Default: "./data/conversations"
	StorePath string `yaml:"store_path"`

	// StoreInMemory opens the conversation store in memory. For testing.
	StoreInMemory bool `yaml:"store_in_memory"`

	// SearchEnabled wires the Tavily search client. Default: true; the
	// gate still requires per-request opt-in plus a classifier verdict.
	SearchEnabled *bool `yaml:"search_enabled"`

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string `yaml:"otel_endpoint"`

	// EnableMetrics enables the Prometheus /metrics endpoint.
	// Nil defaults to true.
	EnableMetrics *bool `yaml:"enable_metrics"`

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	// Default: uses GIN_MODE env var or "debug".
	GinMode string `yaml:"gin_mode"`

	// RateLimitRPS is the per-client sustained request rate.
	// Default: 5. Negative disables rate limiting.
	RateLimitRPS float64 `yaml:"rate_limit_rps"`

	// RateLimitBurst is the per-client burst size. Default: 10
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction; all fields are read-only after New()
// returns.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	llmClient     llm.LLMClient
	chatStore     store.ChatStore
	pipeline      *pipeline.Pipeline
	extractor     *extract.Extractor
	metrics       *observability.ChatMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new chat Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the LLM client based on backend type
//  5. Opens the conversation store
//  6. Wires the search client, extractor, and pipeline
//  7. Sets up HTTP routes with extension options
//
// If opts is nil, DefaultOptions() is used (no-op implementations).
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - opts: Extension options for enterprise features. May be nil.
//
// # Outputs
//
//   - Service: Ready-to-run chat service
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = opts.Normalized()
	} else {
		s.opts = extensions.DefaultOptions()
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if *s.config.EnableMetrics {
		if observability.DefaultMetrics == nil {
			observability.InitMetrics()
		}
		s.metrics = observability.DefaultMetrics
		slog.Info("Initialized Prometheus metrics for chat pipeline")
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if err := s.initStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	searcher := s.initSearcher()

	s.pipeline, err = pipeline.New(s.llmClient, s.chatStore, searcher, s.metrics, pipeline.Config{
		Model:          s.config.Model,
		ReasoningModel: s.config.ReasoningModel,
		Temperature:    s.config.Temperature,
		MaxTokens:      s.config.MaxTokens,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s.extractor = extract.NewExtractor(s.describeFunc())

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting chat server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12215
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "openai"
	}
	if cfg.Temperature == nil {
		temp := float32(0.6)
		cfg.Temperature = &temp
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "./data/conversations"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	if cfg.EnableMetrics == nil {
		enabled := true
		cfg.EnableMetrics = &enabled
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("chat-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient initializes the LLM provider client.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI-compatible LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to openai", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOpenAIClient()
	}

	return err
}

// initStore opens the conversation store.
func (s *service) initStore() error {
	var cfg store.Config
	if s.config.StoreInMemory {
		cfg = store.InMemoryConfig()
	} else {
		cfg = store.DefaultConfig(s.config.StorePath)
	}
	cfg.Logger = slog.Default()

	st, err := store.OpenBadger(cfg)
	if err != nil {
		return err
	}
	s.chatStore = st
	slog.Info("Conversation store opened", "path", s.config.StorePath, "in_memory", s.config.StoreInMemory)
	return nil
}

// initSearcher wires the Tavily client. A missing API key disables search
// rather than failing startup; the pipeline then never augments with web
// results.
func (s *service) initSearcher() pipeline.Searcher {
	if s.config.SearchEnabled != nil && !*s.config.SearchEnabled {
		slog.Info("Web search disabled by configuration")
		return nil
	}
	client, err := search.NewTavilyClient()
	if err != nil {
		slog.Warn("Web search unavailable", "error", err)
		return nil
	}
	return client
}

// describeFunc exposes the LLM client's vision capability to the
// extractor, when the backend has one.
func (s *service) describeFunc() extract.DescribeFunc {
	if vc, ok := s.llmClient.(llm.VisionClient); ok {
		return vc.DescribeImage
	}
	slog.Info("LLM backend has no vision support, image uploads yield placeholders")
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("chat-service"))

	var limiter *middleware.RateLimiter
	if s.config.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimitRPS,
			Burst:             s.config.RateLimitBurst,
			IdleTTL:           10 * time.Minute,
		})
	}

	routes.SetupRoutes(s.router, routes.Deps{
		Pipeline:  s.pipeline,
		Store:     s.chatStore,
		Extractor: s.extractor,
		Options:   s.opts,
		Metrics:   s.metrics,
		RateLimit: limiter,
	})

	if *s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.chatStore != nil {
		if err := s.chatStore.Close(); err != nil {
			slog.Warn("Conversation store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
