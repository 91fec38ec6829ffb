package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/bridge"
)

const (
	appOrigin  = "https://desk.example.test"
	hostOrigin = "https://host.example.test"
)

func TestBridgeHandler_Inbox_SameOrigin(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tokens := b.Receive(ctx, bridge.KindAPIToken)

	req := httptest.NewRequest(http.MethodPost, "/bridge/inbox", strings.NewReader(`{"id":"x1","type":"api:token","data":"tok"}`))
	req.Header.Set("Origin", appOrigin)
	w := httptest.NewRecorder()

	h.Inbox(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	select {
	case data := <-tokens:
		assert.JSONEq(t, `"tok"`, string(data))
	case <-time.After(time.Second):
		t.Fatal("token message not delivered")
	}
}

func TestBridgeHandler_Inbox_ForeignOrigin(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin))

	req := httptest.NewRequest(http.MethodPost, "/bridge/inbox", strings.NewReader(`{"id":"x1","type":"api:token","data":"tok"}`))
	req.Header.Set("Origin", "https://evil.example.test")
	w := httptest.NewRecorder()

	h.Inbox(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBridgeHandler_Inbox_MalformedIsAccepted(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin))

	req := httptest.NewRequest(http.MethodPost, "/bridge/inbox", strings.NewReader(`not json`))
	req.Header.Set("Origin", appOrigin)
	w := httptest.NewRecorder()

	h.Inbox(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestBridgeHandler_Send(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := b.Outbox(ctx)

	body, _ := json.Marshal(SendMessageRequest{Type: bridge.KindContentHeight, Data: json.RawMessage(`640`)})
	w := httptest.NewRecorder()
	h.Send(w, httptest.NewRequest(http.MethodPost, "/bridge/outbox", bytes.NewReader(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	select {
	case msg := <-out:
		assert.Equal(t, bridge.KindContentHeight, msg.Type)
		assert.JSONEq(t, `640`, string(msg.Data))
		assert.NotEmpty(t, msg.ID)
	case <-time.After(time.Second):
		t.Fatal("outbox message not published")
	}
}

func TestBridgeHandler_Send_MissingType(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin))

	w := httptest.NewRecorder()
	h.Send(w, httptest.NewRequest(http.MethodPost, "/bridge/outbox", strings.NewReader(`{"data":1}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBridgeHandler_Outbox_StreamsEvents(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin, bridge.WithTargetOrigin(hostOrigin)))

	srv := httptest.NewServer(http.HandlerFunc(h.Outbox))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", hostOrigin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	assert.Eventually(t, func() bool {
		_, out := b.Listeners()
		return out == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.SendLocation("/orders/7"))

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for event == "" || data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	assert.Equal(t, string(bridge.KindContentLocation), event)
	var msg bridge.Message
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.JSONEq(t, `"/orders/7"`, string(msg.Data))
}

func TestBridgeHandler_Outbox_WrongOrigin(t *testing.T) {
	b := bridge.New()
	h := NewBridgeHandler(b, bridge.NewFrame(b, appOrigin, bridge.WithTargetOrigin(hostOrigin)))

	req := httptest.NewRequest(http.MethodGet, "/bridge/outbox", nil)
	req.Header.Set("Origin", "https://other.example.test")
	w := httptest.NewRecorder()

	h.Outbox(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
