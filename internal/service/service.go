// Package service implements the lead nurturing use cases on top of the
// store, the agent and the outreach dispatcher.
package service

import (
	"context"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/agent"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/auth"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/dispatch"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/ingestion"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/personalization"
	store "github.com/hasebahmdai-arch/lead-nurturing-agent/internal/repository"
)

// ThreadReader reads agent thread memory.
type ThreadReader interface {
	Thread(ctx context.Context, threadID string, limit int) ([]agent.Turn, error)
}

// Ingester stores and indexes brochure uploads.
type Ingester interface {
	StoreUpload(ctx context.Context, up ingestion.Upload, projectName string, uploadedBy *int64) (*domain.BrochureDocument, error)
	Ingest(ctx context.Context, doc *domain.BrochureDocument) (*ingestion.Result, error)
}

// FeedPublisher fans conversation events out to live subscribers.
type FeedPublisher interface {
	Publish(topic string, v any) error
}

// Deps are the collaborators of a Service. Feed may be nil.
type Deps struct {
	Store        store.Store
	Config       *config.Config
	Issuer       *auth.Issuer
	Personalizer personalization.Personalizer
	Agent        agent.Runner
	Threads      ThreadReader
	Dispatcher   dispatch.Dispatcher
	Ingestion    Ingester
	Feed         FeedPublisher
}

type Service struct {
	store        store.Store
	config       *config.Config
	issuer       *auth.Issuer
	personalizer personalization.Personalizer
	agent        agent.Runner
	threads      ThreadReader
	dispatcher   dispatch.Dispatcher
	ingestion    Ingester
	feed         FeedPublisher
	targets      dispatch.Targets
	now          func() time.Time
}

func New(d Deps) *Service {
	return &Service{
		store:        d.Store,
		config:       d.Config,
		issuer:       d.Issuer,
		personalizer: d.Personalizer,
		agent:        d.Agent,
		threads:      d.Threads,
		dispatcher:   d.Dispatcher,
		ingestion:    d.Ingestion,
		feed:         d.Feed,
		targets:      dispatch.TargetsFromConfig(d.Config),
		now:          func() time.Time { return time.Now().UTC() },
	}
}
