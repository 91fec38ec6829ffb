package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/remote"
	"github.com/cloo-solutions/orderdesk/internal/search"
)

// API is the part of the remote client the services depend on.
type API interface {
	Get(ctx context.Context, path string, out any) error
	GetNoAuth(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	PostForm(ctx context.Context, path string, fields url.Values, out any) error
	Download(ctx context.Context, path string) (*remote.Blob, error)
}

var _ API = (*remote.Client)(nil)

// rawPage is a page whose list is decoded lazily: the API returns lists
// either as arrays or as objects keyed by id.
type rawPage struct {
	Count int             `json:"count"`
	List  json.RawMessage `json:"list"`
}

// decodeList accepts a JSON array, or an object whose values are the entries
// in key order.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected list, got %s", raw)
	}

	var list []T
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var item T
		if err := dec.Decode(&item); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

// searchPage posts a query to path and decodes the page.
func searchPage[T any](ctx context.Context, api API, path string, query any) (pagination.Page[T], error) {
	var raw rawPage
	if err := api.Post(ctx, path, query, &raw); err != nil {
		return pagination.Page[T]{}, err
	}
	list, err := decodeList[T](raw.List)
	if err != nil {
		return pagination.Page[T]{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return pagination.Page[T]{Count: raw.Count, List: list}, nil
}

// Search runs a free-text search over one domain with entries decoded as T.
func Search[T any](ctx context.Context, api API, d domain.SearchDomain, query string, page int, uncache bool) (pagination.Page[T], error) {
	if page < 1 {
		return pagination.Page[T]{}, pagination.ErrInvalidPage
	}
	return searchPage[T](ctx, api, remote.SearchPath(d, page, uncache), query)
}

// DomainFetcher feeds the search cache of one domain; entries stay raw JSON.
func DomainFetcher(api API, d domain.SearchDomain) search.Fetcher[string, json.RawMessage] {
	return func(ctx context.Context, query string, page int, uncache bool) (pagination.Page[json.RawMessage], error) {
		return Search[json.RawMessage](ctx, api, d, query, page, uncache)
	}
}

func withUncache(path string, uncache bool) string {
	if uncache {
		return path + "?uncache=1"
	}
	return path
}
