package bridge

import (
	"context"
	"encoding/json"
	"log"

	"github.com/cloo-solutions/orderdesk/internal/domain"
)

// AnyOrigin addresses outbound messages to the host whatever its origin.
const AnyOrigin = "*"

// Poster delivers a message to the host frame.
type Poster interface {
	PostMessage(ctx context.Context, msg Message, targetOrigin string) error
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(ctx context.Context, msg Message, targetOrigin string) error

func (f PosterFunc) PostMessage(ctx context.Context, msg Message, targetOrigin string) error {
	return f(ctx, msg, targetOrigin)
}

// Frame is the boundary between the bridge and the host window.
type Frame struct {
	bridge       *Bridge
	appOrigin    string
	targetOrigin string
}

type FrameOption func(*Frame)

// WithTargetOrigin restricts outbound messages to hosts of the given origin.
func WithTargetOrigin(origin string) FrameOption {
	return func(f *Frame) {
		if origin != "" {
			f.targetOrigin = origin
		}
	}
}

func NewFrame(b *Bridge, appOrigin string, opts ...FrameOption) *Frame {
	f := &Frame{
		bridge:       b,
		appOrigin:    appOrigin,
		targetOrigin: AnyOrigin,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Frame) TargetOrigin() string {
	return f.targetOrigin
}

// Accept republishes a host message into the inbox. Messages from any origin
// other than the application's own are rejected. Payloads that are not a
// message envelope are dropped without error.
func (f *Frame) Accept(origin string, payload []byte) error {
	if origin != f.appOrigin {
		return domain.ErrForeignOrigin
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil
	}
	if msg.Type == "" {
		return nil
	}
	f.bridge.Take(msg)
	return nil
}

// Forward posts every outbox message to the host until ctx is done. Delivery
// errors are logged and do not stop forwarding.
func (f *Frame) Forward(ctx context.Context, poster Poster) {
	for msg := range f.bridge.Outbox(ctx) {
		if err := poster.PostMessage(ctx, msg, f.targetOrigin); err != nil {
			log.Printf("bridge: failed to post %s to host: %v", msg.Type, err)
		}
	}
}

// Delivers reports whether a host at origin may see a message addressed to
// targetOrigin.
func Delivers(targetOrigin, origin string) bool {
	return targetOrigin == AnyOrigin || targetOrigin == origin
}
