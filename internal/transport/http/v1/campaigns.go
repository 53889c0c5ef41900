package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/hub"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// ListCampaigns lists the caller's campaigns.
// GET /api/campaigns
func (h *Handler) ListCampaigns(c echo.Context) error {
	campaigns, err := h.service.ListCampaigns(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, campaigns)
}

// CreateCampaign creates a campaign and sends its outreach.
// POST /api/campaigns
func (h *Handler) CreateCampaign(c echo.Context) error {
	var req service.CreateCampaignRequest
	if err := bind(c, &req); err != nil {
		return WriteError(c, err)
	}
	detail, err := h.service.CreateCampaign(c.Request().Context(), currentUser(c).ID, req)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

// CampaignDashboard returns the campaign, its metrics and leads.
// GET /api/campaigns/:campaign_id/dashboard
func (h *Handler) CampaignDashboard(c echo.Context) error {
	id, err := pathID(c, "campaign_id")
	if err != nil {
		return WriteError(c, err)
	}
	dash, err := h.service.Dashboard(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, dash)
}

// ConversationThread returns the messages of a campaign lead.
// GET /api/campaigns/:campaign_id/followups/:campaign_lead_id
func (h *Handler) ConversationThread(c echo.Context) error {
	campaignID, err := pathID(c, "campaign_id")
	if err != nil {
		return WriteError(c, err)
	}
	campaignLeadID, err := pathID(c, "campaign_lead_id")
	if err != nil {
		return WriteError(c, err)
	}
	thread, err := h.service.Conversation(c.Request().Context(), currentUser(c).ID, campaignID, campaignLeadID)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, thread)
}

// RespondToCustomer records a customer message and returns the agent reply.
// POST /api/campaigns/followups/:campaign_lead_id/respond
func (h *Handler) RespondToCustomer(c echo.Context) error {
	campaignLeadID, err := pathID(c, "campaign_lead_id")
	if err != nil {
		return WriteError(c, err)
	}
	var req service.CustomerMessage
	if err := bind(c, &req); err != nil {
		return WriteError(c, err)
	}
	reply, err := h.service.HandleCustomerMessage(c.Request().Context(), currentUser(c).ID, campaignLeadID, req)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, reply)
}

// CampaignFeed upgrades to a websocket that streams conversation events.
// GET /api/campaigns/:campaign_id/feed
func (h *Handler) CampaignFeed(c echo.Context) error {
	campaignID, err := pathID(c, "campaign_id")
	if err != nil {
		return WriteError(c, err)
	}
	if _, err := h.service.Campaign(c.Request().Context(), currentUser(c).ID, campaignID); err != nil {
		return WriteError(c, err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logx.Warn().Err(err).Int64("campaign_id", campaignID).Msg("failed to upgrade feed connection")
		return nil
	}
	if err := h.hub.Serve(ws, hub.CampaignTopic(campaignID)); err != nil {
		logx.Warn().Err(err).Int64("campaign_id", campaignID).Msg("feed unavailable")
	}
	return nil
}
