// Package app wires the lead nurturing components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/embedding"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/llm"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/mailer"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/whatsapp"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/auth"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/dispatch"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/hub"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/personalization"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/policy"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/rag"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/t2sql"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/queue"
)

// App holds the wired components. Close releases them.
type App struct {
	Config    *config.Config
	Store     *store.SQLiteStore
	Hub       *hub.Hub
	Agent     *agent.Agent
	Ingestion *ingestion.Service
	Direct    *dispatch.Direct
	Service   *service.Service
	Queue     *queue.RabbitMQ

	redis *goredis.Client
}

// New builds every component. With AMQP configured, outreach is queued for
// the worker instead of sent in-process.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Hub: hub.New()}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	st, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	a.Store = st
	logx.Info().Bool("sqlite_vec", st.VectorExtension()).Msg("store ready")

	models, err := llm.NewChatModels(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize chat models: %w", err)
	}

	embCfg := cfg.Embedding
	if cfg.MockMode() {
		embCfg.Provider = "hashing"
	}
	embedders, err := embedding.New(ctx, embCfg, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	retriever := rag.NewService(st, embedders.Queries, cfg.Agent.DefaultCollection)

	guard, err := policy.NewSQLGuard(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize sql guard: %w", err)
	}

	memory, err := a.memory()
	if err != nil {
		return err
	}

	a.Agent, err = agent.New(ctx, agent.Config{
		Router:    agent.NewRouter(models.Router),
		SQL:       t2sql.NewService(st, models.SQL, guard, cfg.Agent.SQLMaxRows),
		Documents: agent.NewDocumentAnswerTool(retriever, models.Documents, cfg.Agent.RetrievalLimit),
		Memory:    memory,
	})
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}

	a.Ingestion = ingestion.NewService(st, embedders.Documents, ingestion.Options{
		UploadDir:         cfg.BrochureUploadDir,
		DefaultCollection: cfg.Agent.DefaultCollection,
		BatchSize:         cfg.Embedding.BatchSize,
	})

	a.Direct = dispatch.NewDirect(mailer.NewSMTPMailer(cfg.Email), whatsapp.NewClient(cfg.WhatsApp), cfg)
	var dispatcher dispatch.Dispatcher = a.Direct
	if cfg.Queue.Enabled() {
		a.Queue = queue.NewRabbitMQ(cfg.Queue)
		if err := a.Queue.Dial(); err != nil {
			return err
		}
		dispatcher = dispatch.NewQueued(a.Queue)
	}

	a.Service = service.New(service.Deps{
		Store:        st,
		Config:       cfg,
		Issuer:       auth.NewIssuer(cfg.Auth),
		Personalizer: personalization.NewGenerator(retriever, models.Personalization, cfg.Agent.RetrievalLimit),
		Agent:        a.Agent,
		Threads:      a.Agent,
		Dispatcher:   dispatcher,
		Ingestion:    a.Ingestion,
		Feed:         a.Hub,
	})
	return nil
}

func (a *App) memory() (agent.Memory, error) {
	cfg := a.Config
	if !cfg.Redis.Enabled() {
		return agent.NewInMemoryMemory(cfg.Agent.ThreadMaxTurns), nil
	}
	client, err := cfg.Redis.New()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.redis = client
	logx.Info().Msg("agent thread memory backed by redis")
	return agent.NewRedisMemory(client, cfg.Agent.ThreadMaxTurns, cfg.Agent.ThreadTTL), nil
}

func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
