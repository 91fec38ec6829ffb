package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/token"
)

type staticTokens string

func (s staticTokens) Wait(context.Context) (string, error) {
	return string(s), nil
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestClient_GetSendsBearerAndDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
		assert.Equal(t, "/demo/order/view/42", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": 42, "sampleId": "S-1"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("abc123"))

	var order domain.Order
	require.NoError(t, c.Get(context.Background(), "demo/order/view/42", &order))
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, "S-1", order.SampleID)
}

func TestClient_WaitsForToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": true})
	}))
	defer srv.Close()

	tokens := token.NewStream()
	c := New(srv.URL, tokens)

	done := make(chan error, 1)
	go func() {
		var ok bool
		done <- c.Get(context.Background(), "demo/actions/sendToCopia/1", &ok)
	}()

	select {
	case <-done:
		t.Fatal("request completed before a token was available")
	case <-time.After(50 * time.Millisecond):
	}

	tokens.Publish("late-token")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("request never completed")
	}
	assert.Equal(t, "Bearer late-token", gotAuth)
}

func TestClient_GetNoAuthSkipsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"token": "t1", "user_info": map[string]any{"name": "dana"}},
		})
	}))
	defer srv.Close()

	// An empty stream would block an authenticated call forever.
	c := New(srv.URL, token.NewStream())

	var bundle domain.TokenBundle
	require.NoError(t, c.GetNoAuth(context.Background(), "user/token?username=u&password=p", &bundle))
	assert.Equal(t, "t1", bundle.Token)
}

func TestClient_PostBodies(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		contentType string
		want        string
	}{
		{"string sent raw", "smith", "text/plain;charset=UTF-8", "smith"},
		{"struct sent as json", domain.OrderQuery{SearchBy: "id", Term: "7"}, "application/json", `{"searchBy":"id","term":"7","exactMatch":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, tt.contentType, r.Header.Get("Content-Type"))
				assert.Equal(t, tt.want, string(body))
				writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": nil})
			}))
			defer srv.Close()

			c := New(srv.URL, staticTokens("t"))
			require.NoError(t, c.Post(context.Background(), "demo/search/patients/1", tt.body, nil))
		})
	}
}

func TestClient_PostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Smith", r.PostForm.Get("last_name"))
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": 9})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	var id int
	require.NoError(t, c.PostForm(context.Background(), "demo/testPatients/create", url.Values{"last_name": {"Smith"}}, &id))
	assert.Equal(t, 9, id)
}

func TestClient_EnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": false, "error": "order locked"})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	err := c.Get(context.Background(), "demo/order/view/1", nil)

	var envErr *EnvelopeError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, "order locked", envErr.Message)
}

func TestClient_HTTPErrorFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, map[string]any{"success": false, "error": "no such order"})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	err := c.Get(context.Background(), "demo/order/view/1", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404 - Not Found no such order", err.Error())
}

func TestClient_HTTPErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	err := c.Get(context.Background(), "demo/order/view/1", nil)
	assert.EqualError(t, err, "502 - Bad Gateway upstream down")
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	blob, err := c.Download(context.Background(), "accession/report/5")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), blob.Data)
}

func TestClient_DownloadRejectsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": 1})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	_, err := c.Download(context.Background(), "accession/report/5")
	assert.ErrorIs(t, err, domain.ErrNotABlob)
}

func TestClient_JSONWithCharsetIsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"success":true,"data":"ok"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"))
	var s string
	require.NoError(t, c.Get(context.Background(), "x", &s))
	assert.Equal(t, "ok", s)
}

func TestClient_CancelWhileWaitingForToken(t *testing.T) {
	c := New("http://127.0.0.1:1", token.NewStream())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "demo/order/view/1", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/search/doctors/2", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("uncache"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "smith", string(body))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"count": 25,
				"list":  []map[string]any{{"id": 11}, {"id": 12}},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", staticTokens("t"))
	page, err := c.Search(context.Background(), domain.SearchDoctors, "smith", 2, true)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Count)
	assert.Len(t, page.List, 2)
}

func TestSearchPath(t *testing.T) {
	assert.Equal(t, "demo/search/orderSets/1", SearchPath(domain.SearchOrderSets, 1, false))
	assert.Equal(t, "demo/search/tdTests/3?uncache=1", SearchPath(domain.SearchTdTests, 3, true))
}

func TestClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := New(srv.URL, staticTokens("t"), WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Get(context.Background(), "x", nil))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
