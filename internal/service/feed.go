package service

import (
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/hub"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// FeedEventMessage is the feed event type of a stored conversation message.
const FeedEventMessage = "conversation.message"

// FeedEvent is pushed to the live feed of a campaign.
type FeedEvent struct {
	Type           string                     `json:"type"`
	CampaignID     int64                      `json:"campaign_id"`
	CampaignLeadID int64                      `json:"campaign_lead_id"`
	Message        domain.ConversationMessage `json:"message"`
}

// publishMessages is best effort: a feed without subscribers or a stopped
// hub never fails the caller.
func (s *Service) publishMessages(campaignID int64, msgs ...domain.ConversationMessage) {
	if s.feed == nil {
		return
	}
	topic := hub.CampaignTopic(campaignID)
	for _, m := range msgs {
		event := FeedEvent{
			Type:           FeedEventMessage,
			CampaignID:     campaignID,
			CampaignLeadID: m.CampaignLeadID,
			Message:        m,
		}
		if err := s.feed.Publish(topic, event); err != nil {
			logx.Warn().Err(err).Int64("campaign_id", campaignID).Msg("failed to publish feed event")
			return
		}
	}
}
