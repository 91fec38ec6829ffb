package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/api/middleware"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/search"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

// SearchState is the search cache behind one inline picker.
type SearchState = search.State[string, json.RawMessage]

// SearchStates hands out the search caches of one domain, one per owner.
type SearchStates interface {
	Get(owner string) *SearchState
	Release(owner string) bool
}

var _ SearchStates = (*search.Registry[string, json.RawMessage])(nil)

// SearchLogReader lists recent search requests of a domain.
type SearchLogReader interface {
	Recent(ctx context.Context, domain string, limit int) ([]service.SearchLogEntry, error)
}

type SearchHandler struct {
	states map[domain.SearchDomain]SearchStates
	logs   SearchLogReader
}

// NewSearchHandler serves the given domains; logs may be nil when no search
// log is configured.
func NewSearchHandler(states map[domain.SearchDomain]SearchStates, logs SearchLogReader) *SearchHandler {
	return &SearchHandler{states: states, logs: logs}
}

func (h *SearchHandler) domainStates(w http.ResponseWriter, r *http.Request) (SearchStates, bool) {
	d, err := domain.ParseSearchDomain(chi.URLParam(r, "domain"))
	if err != nil {
		api.HandleError(w, err)
		return nil, false
	}
	states, ok := h.states[d]
	if !ok {
		api.HandleError(w, domain.ErrUnknownSearchDomain)
		return nil, false
	}
	return states, true
}

func (h *SearchHandler) state(w http.ResponseWriter, r *http.Request) (*SearchState, bool) {
	states, ok := h.domainStates(w, r)
	if !ok {
		return nil, false
	}
	return states.Get(middleware.GetOwnerID(r.Context())), true
}

type SetQueryRequest struct {
	Query     string `json:"query"`
	Immediate bool   `json:"immediate"`
}

// Query feeds the search box. Keystrokes are debounced and answered with 202;
// an immediate query is evaluated before responding.
func (h *SearchHandler) Query(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}

	var req SetQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Immediate {
		state.SetQuery(req.Query)
		api.Success(w, http.StatusAccepted, state.Snapshot())
		return
	}

	if err := state.Evaluate(r.Context(), req.Query); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, state.Snapshot())
}

type ScrollResponse struct {
	Fetched  bool                                     `json:"fetched"`
	Snapshot search.Snapshot[string, json.RawMessage] `json:"snapshot"`
}

func (h *SearchHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}

	fetched, err := state.Scroll(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ScrollResponse{Fetched: fetched, Snapshot: state.Snapshot()})
}

// PageResponse is one cached page of a search.
type PageResponse struct {
	Query   string            `json:"query"`
	Page    int               `json:"page"`
	Count   int               `json:"count"`
	Loading bool              `json:"loading"`
	Items   []json.RawMessage `json:"items"`
}

// Get returns the whole cache, or one page when page is given. With uncache
// set the current page is fetched again past the API cache first.
func (h *SearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := h.state(w, r)
	if !ok {
		return
	}

	rawPage := r.URL.Query().Get("page")
	uncache, _ := strconv.ParseBool(r.URL.Query().Get("uncache"))

	if rawPage == "" {
		if uncache {
			if err := state.Invalidate(r.Context()); err != nil {
				api.HandleError(w, err)
				return
			}
		}
		api.Success(w, http.StatusOK, state.Snapshot())
		return
	}

	page, err := pagination.ParsePage(rawPage)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if _, err := state.ChangePage(r.Context(), page); err != nil {
		api.HandleError(w, err)
		return
	}
	if uncache {
		if err := state.Invalidate(r.Context()); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	items, _ := state.PageItems(page)
	if items == nil {
		items = []json.RawMessage{}
	}
	api.Success(w, http.StatusOK, PageResponse{
		Query:   state.Query(),
		Page:    page,
		Count:   state.Count(),
		Loading: state.Loading(),
		Items:   items,
	})
}

// Release drops the owner's cache when its page or modal closes.
func (h *SearchHandler) Release(w http.ResponseWriter, r *http.Request) {
	states, ok := h.domainStates(w, r)
	if !ok {
		return
	}
	states.Release(middleware.GetOwnerID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Log lists recent search requests of the domain.
func (h *SearchHandler) Log(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		api.Error(w, http.StatusNotFound, "search log not configured")
		return
	}

	d, err := domain.ParseSearchDomain(chi.URLParam(r, "domain"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.logs.Recent(r.Context(), string(d), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if entries == nil {
		entries = []service.SearchLogEntry{}
	}
	api.Success(w, http.StatusOK, entries)
}
