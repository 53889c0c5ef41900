package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
)

func TestFeedAddress(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "ws://localhost:8000", want: "ws://localhost:8000/api/campaigns/7/feed?token=abc"},
		{base: "http://localhost:8000/", want: "ws://localhost:8000/api/campaigns/7/feed?token=abc"},
		{base: "https://crm.example.com/leads", want: "wss://crm.example.com/leads/api/campaigns/7/feed?token=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := FeedAddress(tt.base, 7, "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FeedAddress("ftp://localhost", 7, "abc")
	assert.Error(t, err)
}

func TestFormatEvent(t *testing.T) {
	raw, err := json.Marshal(service.FeedEvent{
		Type:           service.FeedEventMessage,
		CampaignID:     3,
		CampaignLeadID: 12,
		Message:        domain.ConversationMessage{Sender: domain.SenderCustomer, Message: "Is parking included?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "[lead 12] customer: Is parking included?", FormatEvent(raw))

	assert.Equal(t, `{"type":"ping"}`, FormatEvent([]byte(`{"type":"ping"}`)))
	assert.Equal(t, "not json", FormatEvent([]byte("not json")))
}
