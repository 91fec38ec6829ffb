package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

// SearchPath returns the endpoint for one page of a domain search.
func SearchPath(d domain.SearchDomain, page int, uncache bool) string {
	path := fmt.Sprintf("demo/search/%ss/%d", d, page)
	if uncache {
		path += "?uncache=1"
	}
	return path
}

// Search runs a free-text search over a domain and returns one page of
// opaque entries.
func (c *Client) Search(ctx context.Context, d domain.SearchDomain, query string, page int, uncache bool) (pagination.Page[json.RawMessage], error) {
	var result pagination.Page[json.RawMessage]
	if page < 1 {
		return result, pagination.ErrInvalidPage
	}
	if err := c.Post(ctx, SearchPath(d, page, uncache), query, &result); err != nil {
		return pagination.Page[json.RawMessage]{}, err
	}
	return result, nil
}
