package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/bridge"
	"github.com/cloo-solutions/orderdesk/internal/domain"
)

// BridgeHandler exposes the message bridge to the host page and the front end.
type BridgeHandler struct {
	bridge *bridge.Bridge
	frame  *bridge.Frame
}

func NewBridgeHandler(b *bridge.Bridge, frame *bridge.Frame) *BridgeHandler {
	return &BridgeHandler{bridge: b, frame: frame}
}

// Inbox takes a message posted by the host page.
func (h *BridgeHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.frame.Accept(r.Header.Get("Origin"), payload); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type SendMessageRequest struct {
	Type bridge.Kind     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Send publishes a front-end message to the outbox.
func (h *BridgeHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}
	msg, err := h.bridge.Send(req.Type, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, msg)
}

// Outbox streams outbox messages to the host as server-sent events.
func (h *BridgeHandler) Outbox(w http.ResponseWriter, r *http.Request) {
	if !bridge.Delivers(h.frame.TargetOrigin(), r.Header.Get("Origin")) {
		api.HandleError(w, domain.ErrForeignOrigin)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		log.Printf("bridge: outbox stream cannot flush: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var mu sync.Mutex
	h.frame.Forward(ctx, bridge.PosterFunc(func(_ context.Context, msg bridge.Message, _ string) error {
		mu.Lock()
		defer mu.Unlock()
		if err := writeEvent(w, msg); err != nil {
			cancel()
			return err
		}
		if err := rc.Flush(); err != nil {
			cancel()
			return err
		}
		return nil
	}))
}

func writeEvent(w io.Writer, msg bridge.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
