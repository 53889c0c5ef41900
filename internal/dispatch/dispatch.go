// Package dispatch delivers campaign outreach by email or WhatsApp, either
// directly or through the outreach queue.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/mailer"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/adapter/whatsapp"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// ErrEmailOverrideMissing blocks email campaigns without a test inbox.
var ErrEmailOverrideMissing = errors.New("CAMPAIGN_EMAIL_OVERRIDE must be set to route nurture emails to your test inbox.")

// Outreach is one message bound for one lead.
type Outreach struct {
	CampaignID     int64                 `json:"campaign_id"`
	CampaignLeadID int64                 `json:"campaign_lead_id"`
	LeadID         int64                 `json:"lead_id"`
	Channel        domain.MessageChannel `json:"channel"`
	Recipient      string                `json:"recipient"`
	Subject        string                `json:"subject,omitempty"`
	Body           string                `json:"body"`
}

// Dispatcher delivers outreach.
type Dispatcher interface {
	Dispatch(ctx context.Context, o Outreach) error
}

// Targets are the recipient overrides applied to every campaign.
type Targets struct {
	EmailOverride    string
	WhatsAppOverride string
}

func TargetsFromConfig(cfg *config.Config) Targets {
	return Targets{EmailOverride: cfg.Email.OverrideEmail, WhatsAppOverride: cfg.WhatsApp.OverrideNumber}
}

// NewOutreach addresses body to lead on the campaign's channel.
func NewOutreach(t Targets, campaign *domain.Campaign, lead *domain.Lead, campaignLeadID int64, body string) (Outreach, error) {
	o := Outreach{
		CampaignID:     campaign.ID,
		CampaignLeadID: campaignLeadID,
		LeadID:         lead.ID,
		Channel:        campaign.MessageChannel,
		Body:           body,
	}
	switch campaign.MessageChannel {
	case domain.ChannelWhatsApp:
		number := t.WhatsAppOverride
		if number == "" {
			number = lead.PhoneNumber
		}
		o.Recipient = whatsapp.FormatPhone(number)
	case domain.ChannelEmail, "":
		if t.EmailOverride == "" {
			return Outreach{}, ErrEmailOverrideMissing
		}
		o.Channel = domain.ChannelEmail
		o.Recipient = t.EmailOverride
		o.Subject = fmt.Sprintf("[%s] Personalized follow-up for %s", campaign.ProjectName, lead.FullName())
	default:
		return Outreach{}, fmt.Errorf("unsupported message channel %q", campaign.MessageChannel)
	}
	return o, nil
}

// Direct sends outreach in-process.
type Direct struct {
	mail     mailer.Sender
	whatsapp whatsapp.Sender
	email    config.EmailConfig
	wa       config.WhatsAppConfig
	// debug keeps campaigns going when a send fails.
	debug bool
}

var _ Dispatcher = (*Direct)(nil)

func NewDirect(m mailer.Sender, wa whatsapp.Sender, cfg *config.Config) *Direct {
	return &Direct{mail: m, whatsapp: wa, email: cfg.Email, wa: cfg.WhatsApp, debug: cfg.Debug}
}

func (d *Direct) Dispatch(ctx context.Context, o Outreach) error {
	switch o.Channel {
	case domain.ChannelWhatsApp:
		return d.sendWhatsApp(ctx, o)
	default:
		return d.sendEmail(ctx, o)
	}
}

func (d *Direct) sendEmail(ctx context.Context, o Outreach) error {
	logx.Info().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).Str("recipient", o.Recipient).
		Str("host", d.email.Host).Int("port", d.email.Port).Bool("use_ssl", d.email.UseSSL).Str("from_email", d.email.From).
		Msg("preparing email dispatch")
	if !d.email.HasCredentials() {
		logx.Warn().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
			Msg("email credentials missing; skipped dispatch")
		return nil
	}

	err := d.mail.Send(ctx, mailer.Message{To: o.Recipient, Subject: o.Subject, Body: o.Body})
	if err == nil {
		logx.Info().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).Str("recipient", o.Recipient).
			Msg("campaign email dispatched")
		return nil
	}
	return d.failed(o, err)
}

func (d *Direct) sendWhatsApp(ctx context.Context, o Outreach) error {
	if !d.wa.Enabled() || d.whatsapp == nil {
		logx.Warn().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
			Msg("evolution api not configured; skipped whatsapp dispatch")
		return nil
	}
	if o.Recipient == "" {
		logx.Warn().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
			Msg("lead has no phone number; skipped whatsapp dispatch")
		return nil
	}

	resp, err := d.whatsapp.SendText(ctx, o.Recipient, o.Body)
	if err == nil {
		logx.Info().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).Str("recipient", o.Recipient).
			Str("message_id", resp.Key.ID).Msg("campaign whatsapp dispatched")
		return nil
	}
	return d.failed(o, err)
}

func (d *Direct) failed(o Outreach, err error) error {
	logx.Error().Err(err).Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
		Str("channel", string(o.Channel)).Msg("failed to dispatch campaign message")
	if d.debug {
		logx.Warn().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).
			Msg("DEBUG=true; continuing despite dispatch failure")
		return nil
	}
	return fmt.Errorf("failed to dispatch %s to lead %d: %w", o.Channel, o.LeadID, err)
}

// Publisher publishes a message body to the outreach queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// Handoff is implemented by dispatchers that pass outreach to another
// process. A handoff cannot be recalled, so callers dispatch only once their
// own writes have committed.
type Handoff interface {
	Dispatcher
	Handoff()
}

// Queued hands outreach to the worker through the queue.
type Queued struct {
	publisher Publisher
}

var _ Handoff = (*Queued)(nil)

func (q *Queued) Handoff() {}

func NewQueued(p Publisher) *Queued {
	return &Queued{publisher: p}
}

func (q *Queued) Dispatch(ctx context.Context, o Outreach) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode outreach: %w", err)
	}
	if err := q.publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to queue outreach for lead %d: %w", o.LeadID, err)
	}
	logx.Debug().Int64("campaign_id", o.CampaignID).Int64("lead_id", o.LeadID).Msg("outreach queued")
	return nil
}
