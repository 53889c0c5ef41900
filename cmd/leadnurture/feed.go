package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/service"
)

var (
	feedURL   string
	feedToken string
)

var feedCmd = &cobra.Command{
	Use:   "feed <campaign_id>",
	Short: "Tail the live conversation feed of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid campaign id %q", args[0])
		}
		if feedToken == "" {
			return errors.New("--token is required")
		}
		addr, err := FeedAddress(feedURL, campaignID, feedToken)
		if err != nil {
			return err
		}

		client, err := DialFeed(addr)
		if err != nil {
			return err
		}
		go func() {
			<-cmd.Context().Done()
			_ = client.Close()
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "Watching campaign %d. Press Ctrl+C to stop.\n", campaignID)
		err = client.ReadEvents(cmd.OutOrStdout())
		if cmd.Context().Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	feedCmd.Flags().StringVar(&feedURL, "url", "ws://localhost:8000", "base websocket address of the API")
	feedCmd.Flags().StringVar(&feedToken, "token", "", "access token")
}

// FeedAddress builds the websocket URL of a campaign feed.
func FeedAddress(base string, campaignID int64, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported feed url scheme %q", u.Scheme)
	}
	u.Path += fmt.Sprintf("/api/campaigns/%d/feed", campaignID)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// FeedClient reads campaign events from the API.
type FeedClient struct {
	conn *websocket.Conn
}

func DialFeed(addr string) (*FeedClient, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &FeedClient{conn: conn}, nil
}

func (c *FeedClient) Close() error {
	return c.conn.Close()
}

// ReadEvents prints each event until the connection closes.
func (c *FeedClient) ReadEvents(w io.Writer) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Fprintln(w, FormatEvent(data))
	}
}

// FormatEvent renders a feed event as one line, or the raw payload when it
// is not a conversation event.
func FormatEvent(data []byte) string {
	var ev service.FeedEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.Type != service.FeedEventMessage {
		return string(data)
	}
	return fmt.Sprintf("[lead %d] %s: %s", ev.CampaignLeadID, ev.Message.Sender, ev.Message.Message)
}
