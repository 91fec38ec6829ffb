package bridge

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// Kind identifies a message on either queue.
type Kind string

const (
	KindAPIToken        Kind = "api:token"
	KindUserInfo        Kind = "user:info"
	KindContentHeight   Kind = "content:height"
	KindContentLocation Kind = "content:location"
	KindContentLoading  Kind = "content:loading"
)

// Message is the envelope exchanged with the host frame.
type Message struct {
	ID   string          `json:"id"`
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewID returns a short base-36 token derived from the current time. It is not
// unique; messages are never deduplicated or replayed.
func NewID() string {
	n := int64(rand.Float64() * float64(time.Now().UnixMilli()))
	return strconv.FormatInt(n, 36)
}

// NewMessage builds a message with a fresh id. A nil data leaves Data empty.
func NewMessage(kind Kind, data any) (Message, error) {
	msg := Message{ID: NewID(), Type: kind}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	msg.Data = raw
	return msg, nil
}

// Payload is the decoded form of a message; the concrete type tells the kind.
type Payload interface {
	Kind() Kind
}

type APIToken struct {
	Token string
}

type UserInfo struct {
	Info map[string]any
}

type ContentHeight struct {
	Height int
}

type ContentLocation struct {
	Path string
}

type ContentLoading struct{}

// Unknown carries a message whose type this application does not recognize.
type Unknown struct {
	Type Kind
	Data json.RawMessage
}

func (APIToken) Kind() Kind        { return KindAPIToken }
func (UserInfo) Kind() Kind        { return KindUserInfo }
func (ContentHeight) Kind() Kind   { return KindContentHeight }
func (ContentLocation) Kind() Kind { return KindContentLocation }
func (ContentLoading) Kind() Kind  { return KindContentLoading }
func (u Unknown) Kind() Kind       { return u.Type }

// Decode interprets msg.Data according to msg.Type.
func Decode(msg Message) (Payload, error) {
	switch msg.Type {
	case KindAPIToken:
		var tok string
		if err := decodeData(msg, &tok); err != nil {
			return nil, err
		}
		return APIToken{Token: tok}, nil
	case KindUserInfo:
		var info map[string]any
		if err := decodeData(msg, &info); err != nil {
			return nil, err
		}
		return UserInfo{Info: info}, nil
	case KindContentHeight:
		var height int
		if err := decodeData(msg, &height); err != nil {
			return nil, err
		}
		return ContentHeight{Height: height}, nil
	case KindContentLocation:
		var path string
		if err := decodeData(msg, &path); err != nil {
			return nil, err
		}
		return ContentLocation{Path: path}, nil
	case KindContentLoading:
		return ContentLoading{}, nil
	default:
		return Unknown{Type: msg.Type, Data: msg.Data}, nil
	}
}

func decodeData(msg Message, v any) error {
	if len(msg.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("malformed %s payload: %w", msg.Type, err)
	}
	return nil
}

// Encode is the inverse of Decode.
func Encode(p Payload) (Message, error) {
	switch v := p.(type) {
	case APIToken:
		return NewMessage(KindAPIToken, v.Token)
	case UserInfo:
		return NewMessage(KindUserInfo, v.Info)
	case ContentHeight:
		return NewMessage(KindContentHeight, v.Height)
	case ContentLocation:
		return NewMessage(KindContentLocation, v.Path)
	case ContentLoading:
		return NewMessage(KindContentLoading, nil)
	case Unknown:
		return Message{ID: NewID(), Type: v.Type, Data: v.Data}, nil
	default:
		return Message{}, fmt.Errorf("unsupported payload %T", p)
	}
}

// Handler receives decoded payloads, one method per kind.
type Handler interface {
	APIToken(APIToken)
	UserInfo(UserInfo)
	ContentHeight(ContentHeight)
	ContentLocation(ContentLocation)
	ContentLoading(ContentLoading)
	Unknown(Unknown)
}

// Dispatch calls the Handler method matching p.
func Dispatch(p Payload, h Handler) {
	switch v := p.(type) {
	case APIToken:
		h.APIToken(v)
	case UserInfo:
		h.UserInfo(v)
	case ContentHeight:
		h.ContentHeight(v)
	case ContentLocation:
		h.ContentLocation(v)
	case ContentLoading:
		h.ContentLoading(v)
	case Unknown:
		h.Unknown(v)
	default:
		panic(fmt.Sprintf("bridge: unhandled payload %T", p))
	}
}
