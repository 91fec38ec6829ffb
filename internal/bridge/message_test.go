package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) APIToken(p APIToken)               { h.calls = append(h.calls, "token:"+p.Token) }
func (h *recordingHandler) UserInfo(UserInfo)                 { h.calls = append(h.calls, "info") }
func (h *recordingHandler) ContentHeight(ContentHeight)       { h.calls = append(h.calls, "height") }
func (h *recordingHandler) ContentLocation(p ContentLocation) { h.calls = append(h.calls, "location:"+p.Path) }
func (h *recordingHandler) ContentLoading(ContentLoading)     { h.calls = append(h.calls, "loading") }
func (h *recordingHandler) Unknown(p Unknown)                 { h.calls = append(h.calls, "unknown:"+string(p.Type)) }

func TestNewID(t *testing.T) {
	id := NewID()
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^[0-9a-z]+$`, id)
}

func TestDecodeAndDispatch(t *testing.T) {
	msgs := []Message{
		{Type: KindAPIToken, Data: json.RawMessage(`"abc"`)},
		{Type: KindUserInfo, Data: json.RawMessage(`{"name":"dana"}`)},
		{Type: KindContentHeight, Data: json.RawMessage(`120`)},
		{Type: KindContentLocation, Data: json.RawMessage(`"/admin"`)},
		{Type: KindContentLoading},
		{Type: "host:ping", Data: json.RawMessage(`{}`)},
	}

	h := &recordingHandler{}
	for _, msg := range msgs {
		p, err := Decode(msg)
		require.NoError(t, err)
		Dispatch(p, h)
	}

	assert.Equal(t, []string{"token:abc", "info", "height", "location:/admin", "loading", "unknown:host:ping"}, h.calls)
}

func TestDecode_MalformedPayload(t *testing.T) {
	_, err := Decode(Message{Type: KindContentHeight, Data: json.RawMessage(`"tall"`)})
	assert.Error(t, err)
}

func TestEncodeRoundTripsKind(t *testing.T) {
	msg, err := Encode(ContentLocation{Path: "/orders/view/7"})
	require.NoError(t, err)
	assert.Equal(t, KindContentLocation, msg.Type)
	assert.NotEmpty(t, msg.ID)

	p, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, ContentLocation{Path: "/orders/view/7"}, p)
}
