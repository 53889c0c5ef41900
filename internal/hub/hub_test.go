package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startFeed(t *testing.T, h *Hub, topic string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = h.Serve(ws, topic)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestPublishReachesTopicSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := startFeed(t, h, CampaignTopic(1))
	ws := dial(t, srv)
	waitFor(t, func() bool { return h.Subscribers(CampaignTopic(1)) == 1 })

	require.NoError(t, h.Publish(CampaignTopic(2), map[string]string{"skip": "me"}))
	require.NoError(t, h.Publish(CampaignTopic(1), map[string]string{"type": "message"}))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message"}`, string(data))

	require.NoError(t, ws.Close())
	waitFor(t, func() bool { return h.Subscribers(CampaignTopic(1)) == 0 })

	cancel()
	<-done
	assert.Error(t, h.Publish(CampaignTopic(1), "late"))
}

func TestShutdownClosesSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := startFeed(t, h, CampaignTopic(5))
	ws := dial(t, srv)
	defer ws.Close()
	waitFor(t, func() bool { return h.Subscribers(CampaignTopic(5)) == 1 })

	cancel()
	<-done

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
