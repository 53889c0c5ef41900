// Package whatsapp sends text messages through the Evolution API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
)

type TextMessage struct {
	Text string `json:"text"`
}

type Options struct {
	Delay       int    `json:"delay"`
	Presence    string `json:"presence"`
	LinkPreview bool   `json:"linkPreview"`
}

type Payload struct {
	Number      string       `json:"number"`
	Text        string       `json:"text"`
	TextMessage *TextMessage `json:"textMessage"`
	Options     Options      `json:"options"`
}

type Key struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type Response struct {
	Key              Key    `json:"key"`
	MessageTimestamp any    `json:"messageTimestamp"`
	Status           string `json:"status"`
}

// Sender delivers a WhatsApp text.
type Sender interface {
	SendText(ctx context.Context, number, text string) (*Response, error)
}

// Client is an Evolution API client bound to one instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		instance:   cfg.Instance,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// FormatPhone strips the characters Evolution rejects in a number.
func FormatPhone(phone string) string {
	return strings.NewReplacer("+", "", "-", "", " ", "").Replace(strings.TrimSpace(phone))
}

// SendText posts to /message/sendText/<instance>. Evolution answers 201 on success.
func (c *Client) SendText(ctx context.Context, number, text string) (*Response, error) {
	requestURL := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)

	body := Payload{
		Number:      FormatPhone(number),
		Text:        text,
		TextMessage: &TextMessage{Text: text},
		Options: Options{
			Delay:       0,
			Presence:    "composing",
			LinkPreview: true,
		},
	}
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var out Response
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &out, nil
}
