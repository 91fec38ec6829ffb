// Package bridge relays messages between the order desk and the host page that
// embeds it. Two independent broadcast queues carry traffic in each direction:
// the inbox (host to app) and the outbox (app to host).
package bridge

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/cloo-solutions/orderdesk/internal/telemetry"
)

const subscriberBuffer = 64

// hub is a broadcast queue. Publishing never blocks: a subscriber whose buffer
// is full misses the message.
type hub struct {
	name string
	mu   sync.RWMutex
	subs map[uint64]chan Message
	next uint64
}

func newHub(name string) *hub {
	return &hub{name: name, subs: make(map[uint64]chan Message)}
}

func (h *hub) subscribe(ctx context.Context) <-chan Message {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

func (h *hub) publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			log.Printf("bridge: %s subscriber %d full, dropping %s message %s", h.name, id, msg.Type, msg.ID)
		}
	}
}

func (h *hub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Bridge is a pure pub/sub relay; it holds no state besides its subscribers.
type Bridge struct {
	inbox  *hub
	outbox *hub
}

func New() *Bridge {
	return &Bridge{
		inbox:  newHub("inbox"),
		outbox: newHub("outbox"),
	}
}

// Take publishes a message received from the host into the inbox.
func (b *Bridge) Take(msg Message) {
	log.Printf("app receiving %s (%s)", msg.Type, msg.ID)
	telemetry.Breadcrumb("bridge.inbox", string(msg.Type), map[string]any{"id": msg.ID})
	b.inbox.publish(msg)
}

func (b *Bridge) post(msg Message) {
	log.Printf("app sending %s (%s)", msg.Type, msg.ID)
	telemetry.Breadcrumb("bridge.outbox", string(msg.Type), map[string]any{"id": msg.ID})
	b.outbox.publish(msg)
}

// Send publishes a new message of the given kind to the outbox.
func (b *Bridge) Send(kind Kind, data any) (Message, error) {
	msg, err := NewMessage(kind, data)
	if err != nil {
		return Message{}, err
	}
	b.post(msg)
	return msg, nil
}

// SendPayload is the typed form of Send.
func (b *Bridge) SendPayload(p Payload) (Message, error) {
	msg, err := Encode(p)
	if err != nil {
		return Message{}, err
	}
	b.post(msg)
	return msg, nil
}

// Receive returns the data of every inbox message of the given kind published
// after the call, until ctx is done. Each call is an independent view.
func (b *Bridge) Receive(ctx context.Context, kind Kind) <-chan json.RawMessage {
	in := b.inbox.subscribe(ctx)
	out := make(chan json.RawMessage, subscriberBuffer)

	go func() {
		defer close(out)
		for msg := range in {
			if msg.Type != kind {
				continue
			}
			select {
			case out <- msg.Data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Inbox returns every message taken from the host until ctx is done.
func (b *Bridge) Inbox(ctx context.Context) <-chan Message {
	return b.inbox.subscribe(ctx)
}

// Outbox returns every message sent by the app until ctx is done.
func (b *Bridge) Outbox(ctx context.Context) <-chan Message {
	return b.outbox.subscribe(ctx)
}

// SendHeight reports the content height in pixels to the host.
func (b *Bridge) SendHeight(height int) error {
	_, err := b.SendPayload(ContentHeight{Height: height})
	return err
}

// SendLocation reports the current route path to the host.
func (b *Bridge) SendLocation(path string) error {
	_, err := b.SendPayload(ContentLocation{Path: path})
	return err
}

// SendLoading tells the host the app has started.
func (b *Bridge) SendLoading() error {
	_, err := b.SendPayload(ContentLoading{})
	return err
}

// Listeners reports how many inbox and outbox subscribers are attached.
func (b *Bridge) Listeners() (inbox, outbox int) {
	return b.inbox.size(), b.outbox.size()
}
