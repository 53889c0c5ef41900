// Package v1 provides the /api HTTP handlers.
package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/hub"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const userKey = "user"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler. The hub serves the campaign feed.
func NewHandler(svc *service.Service, h *hub.Hub) *Handler {
	return &Handler{
		service: svc,
		hub:     h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the /api routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.Health)

	// Auth API
	api.POST("/auth/token", h.ObtainToken)
	api.POST("/auth/token/refresh", h.RefreshToken)

	secured := api.Group("", h.RequireUser)

	// Lead API
	secured.POST("/leads/shortlist", h.ShortlistLeads)
	secured.POST("/leads", h.CreateLead)
	secured.GET("/leads/:lead_id", h.GetLead)
	secured.POST("/leads/:lead_id/conversation", h.RecordConversation)

	// Campaign API
	secured.GET("/campaigns", h.ListCampaigns)
	secured.POST("/campaigns", h.CreateCampaign)
	secured.GET("/campaigns/:campaign_id/dashboard", h.CampaignDashboard)
	secured.GET("/campaigns/:campaign_id/followups/:campaign_lead_id", h.ConversationThread)
	secured.POST("/campaigns/followups/:campaign_lead_id/respond", h.RespondToCustomer)
	secured.GET("/campaigns/:campaign_id/feed", h.CampaignFeed)

	// Agent API
	secured.POST("/agent/documents/upload", h.UploadDocuments)
	secured.POST("/agent/query", h.AgentQuery)
	secured.GET("/agent/threads/:campaign_lead_id", h.AgentThread)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RequireUser authenticates the bearer access token. The websocket feed
// may pass the token as ?token= instead.
func (h *Handler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if token == "" {
			token = c.QueryParam("token")
		}
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
		}
		user, err := h.service.Authenticate(c.Request().Context(), token)
		if err != nil {
			return WriteError(c, err)
		}
		c.Set(userKey, user)
		return next(c)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userKey).(*domain.User)
	return user
}

// WriteError renders err as {"detail": msg} with the status it carries.
func WriteError(c echo.Context, err error) error {
	status, msg := errx.StatusAndMessage(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, map[string]string{"detail": msg})
}

// bind decodes and validates the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return errx.BadRequest(err, "Invalid request body.")
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(v); err != nil {
			return errx.BadRequest(err, err.Error())
		}
	}
	return nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errx.NotFound(domain.ErrNotFound, "Not found.")
	}
	return id, nil
}
