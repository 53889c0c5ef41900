// Package store defines the storage interface and its SQLite implementation.
package store

import (
	"context"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

// MaxShortlistRows caps the leads returned by ShortlistLeads.
const MaxShortlistRows = 200

// Store defines the interface for data persistence.
// Get methods return nil, nil when the row does not exist.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// Lead operations
	CreateLead(ctx context.Context, lead *domain.Lead) error
	GetLead(ctx context.Context, id int64) (*domain.Lead, error)
	GetLeadsByIDs(ctx context.Context, ids []int64) ([]domain.Lead, error)
	ShortlistLeads(ctx context.Context, filter domain.LeadFilter, limit int) ([]domain.Lead, int, error)
	UpdateLeadStatus(ctx context.Context, id int64, status domain.LeadStatus) error
	RecordLeadConversation(ctx context.Context, id int64, summary string, on domain.Date) error

	// Campaign operations
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	ListCampaignsByUser(ctx context.Context, userID int64) ([]domain.Campaign, error)
	GetCampaignMetrics(ctx context.Context, campaignID int64) (*domain.CampaignMetrics, error)

	// CampaignLead operations. Returned campaign leads carry their Lead.
	CreateCampaignLead(ctx context.Context, cl *domain.CampaignLead) error
	GetCampaignLead(ctx context.Context, id int64) (*domain.CampaignLead, error)
	ListCampaignLeads(ctx context.Context, campaignID int64) ([]domain.CampaignLead, error)
	UpdateCampaignLead(ctx context.Context, cl *domain.CampaignLead) error

	// Conversation operations
	CreateConversationMessage(ctx context.Context, msg *domain.ConversationMessage) error
	ListConversationMessages(ctx context.Context, campaignLeadID int64) ([]domain.ConversationMessage, error)

	// Brochure operations
	CreateBrochureDocument(ctx context.Context, doc *domain.BrochureDocument) error
	GetBrochureDocument(ctx context.Context, id int64) (*domain.BrochureDocument, error)
	MarkDocumentIndexed(ctx context.Context, id int64) error
	CreateIngestionLog(ctx context.Context, log *domain.DocumentIngestionLog) error
	ListIngestionLogs(ctx context.Context, documentID int64) ([]domain.DocumentIngestionLog, error)

	// Vector store operations
	DeleteChunksByDocument(ctx context.Context, collection string, documentID int64) error
	AddChunks(ctx context.Context, chunks []domain.DocumentChunk) error
	SearchChunks(ctx context.Context, collection string, query []float32, limit int) ([]domain.ScoredChunk, error)
	ListChunks(ctx context.Context, collection, projectName string, limit int) ([]domain.DocumentChunk, error)

	// Analytics operations
	TableColumns(ctx context.Context, table string) ([]domain.ColumnInfo, error)
	QueryReadOnly(ctx context.Context, query string, tables []string, maxRows int) ([]string, [][]any, error)

	// WithTx runs fn against a store bound to one transaction. Returning an
	// error from fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}
