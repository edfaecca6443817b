package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adgen/config"
	"adgen/internal/auth"
	"adgen/internal/logging"
	"adgen/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetHubPublishesToOwnerOnly(t *testing.T) {
	hub := NewAssetHub()
	owner := NewClient(1)
	other := NewClient(2)
	hub.Register(owner)
	hub.Register(other)
	assert.Equal(t, 2, hub.ClientCount())

	hub.PublishAsset(&models.Asset{ID: "a1", UserID: 1, Status: "READY", URL: "https://x/a.png"})

	select {
	case msg := <-owner.Send:
		var ev AssetEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		assert.Equal(t, AssetEvent{Type: "asset", AssetID: "a1", Status: "READY", URL: "https://x/a.png"}, ev)
	default:
		t.Fatal("owner got nothing")
	}
	assert.Empty(t, other.Send)

	owner.Close()
	owner.Close()
	assert.Equal(t, 1, hub.ClientCount())
	assert.Zero(t, hub.BroadcastToUser(1, "x"))
}

func TestClientDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: 3, Send: make(chan []byte, 1)}
	hub.Register(c)
	assert.Equal(t, 1, hub.BroadcastToUser(3, "a"))
	assert.Equal(t, 0, hub.BroadcastToUser(3, "b"))
}

func TestUpgradeAssetWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute}
	hub := NewAssetHub()
	r := gin.New()
	r.GET("/ws/assets", UpgradeAssetWS(cfg, hub, logging.Discard()))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/assets"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, 5, "u@test.io")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.PublishAsset(&models.Asset{ID: "a2", UserID: 5, Status: "FAILED"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev AssetEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "a2", ev.AssetID)
	assert.Equal(t, "FAILED", ev.Status)
}
