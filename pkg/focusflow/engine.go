package focusflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/focusflowhq/focusflow/pkg/agent"
	"github.com/focusflowhq/focusflow/pkg/auth"
	"github.com/focusflowhq/focusflow/pkg/chat"
	"github.com/focusflowhq/focusflow/pkg/logging"
	"github.com/focusflowhq/focusflow/pkg/metrics"
	"github.com/focusflowhq/focusflow/pkg/observers"
	"github.com/focusflowhq/focusflow/pkg/redact"
	"github.com/focusflowhq/focusflow/pkg/store"
	"github.com/focusflowhq/focusflow/pkg/tools"
	"github.com/focusflowhq/focusflow/pkg/transports"
	"github.com/focusflowhq/focusflow/pkg/transports/httpapi"
)

// DefaultBasePrompt is the system instruction used when config does not
// override it.
const DefaultBasePrompt = "You are FocusFlow, a friendly assistant that manages the user's task list. " +
	"Use the provided tools to create, list, complete, update and delete tasks instead of guessing. " +
	"Confirm what you changed in plain language and keep replies short."

// Engine wires the store, model provider, agent loop and transports into one
// runnable unit.
type Engine struct {
	cfg       Config
	store     *store.Store
	transport transports.Transport
	chat      *chat.Service
	asyncObs  *metrics.AsyncObserver
	metricsF  *os.File
	log       *slog.Logger
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)
	log := logging.NewComponentLogger("engine")

	log.Info("focusflow_init",
		"environment", cfg.Environment,
		"llm_provider", cfg.Vendors.LLM.Provider,
		"database", cfg.Database.DSN,
	)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviderRegistry()
	}
	adapter, err := providers.BuildLLM(cfg.Vendors.LLM.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.Database.SeedDemoData {
		hash, err := auth.HashPassword("password")
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		if err := st.Seed(hash); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed store: %w", err)
		}
		log.Info("demo_data_seeded")
	}

	engine := &Engine{cfg: cfg, store: st, log: log}

	obsList := []metrics.Observer{
		observers.NewLatencyObserver(slog.Default()),
		observers.NewLoggerObserver(slog.Default()),
	}
	if path := cfg.Observability.MetricsFile; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("open metrics file: %w", err)
		}
		engine.metricsF = f
		obsList = append(obsList, metrics.NewJSONLObserver(f))
	}
	engine.asyncObs = metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), cfg.Observability.BufferSize)

	registry := tools.NewRegistry()
	if err := tools.RegisterTaskTools(registry, st); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}
	executor := tools.NewExecutor(registry, engine.asyncObs)

	prompt := cfg.BasePrompt
	if prompt == "" {
		prompt = DefaultBasePrompt
	}
	orc := agent.New(adapter, registry, executor, engine.asyncObs, agent.Config{
		SystemPrompt: prompt,
		MaxRounds:    cfg.Agent.MaxRounds,
		FallbackText: cfg.Agent.FallbackText,
		BudgetText:   cfg.Agent.BudgetText,
	})
	engine.chat = chat.NewService(st, orc)

	authn := auth.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	engine.transport = httpapi.New(httpapi.Config{
		Addr:            cfg.Transports.HTTP.Addr,
		AllowAnyOrigin:  cfg.Transports.HTTP.AllowAnyOrigin,
		AllowedOrigins:  cfg.Transports.HTTP.AllowedOrigins,
		ReadTimeout:     time.Duration(cfg.Transports.HTTP.ReadTimeoutS) * time.Second,
		WriteTimeout:    time.Duration(cfg.Transports.HTTP.WriteTimeoutS) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Transports.HTTP.ShutdownTimeoutS) * time.Second,
	}, st, authn, engine.chat)

	return engine, nil
}

func (e *Engine) Start(ctx context.Context) error {
	if err := e.transport.Start(ctx); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	if reporter, ok := e.transport.(transports.ReadyReporter); ok {
		args := []any{"transport", e.transport.Name()}
		for k, v := range reporter.ReadyFields() {
			args = append(args, k, v)
		}
		e.log.Info("focusflow_ready", args...)
	}
	return nil
}

// Drain stops accepting traffic and flushes buffered metrics.
func (e *Engine) Drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := e.transport.Stop(ctx)
	if e.asyncObs != nil {
		e.asyncObs.Close()
	}
	if e.metricsF != nil {
		_ = e.metricsF.Close()
	}
	if cerr := e.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
