package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

// OrderDesk is the orders list cache and the per-order operations.
type OrderDesk interface {
	GetOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) error
	ChangePage(ctx context.Context, page int) (bool, error)
	SearchThroughOrders(ctx context.Context, q domain.OrderQuery) error
	SearchDate(ctx context.Context, dq domain.DateQuery, page int) error
	Refresh(ctx context.Context) error
	Scroll(ctx context.Context) (bool, error)
	OrdersPage(page int) ([]domain.Order, bool)
	Count() int
	Page() int
	Loading() bool
	Query() domain.OrderQuery

	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetOrderEvents(ctx context.Context, order *domain.Order) error
	GetOrderMeds(ctx context.Context, order *domain.Order) error
	GetOrderTests(ctx context.Context, order *domain.Order) error
	UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	CreateOrder(ctx context.Context, order *domain.Order) (int64, error)
	RunAction(ctx context.Context, orderID int64, action service.OrderAction) (any, error)
	SaveMedications(ctx context.Context, orderID int64, rx, sr, prn []domain.Medication) error
	SubmitMissingResults(ctx context.Context, order *domain.Order, saveToSet bool) error
}

var _ OrderDesk = (*service.OrderService)(nil)

type OrderHandler struct {
	orders OrderDesk
}

func NewOrderHandler(orders OrderDesk) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrdersResponse is one page of the orders list cache.
type OrdersResponse struct {
	Query   domain.OrderQuery `json:"query"`
	Page    int               `json:"page"`
	Count   int               `json:"count"`
	Loading bool              `json:"loading"`
	Orders  []domain.Order    `json:"orders"`
}

func (h *OrderHandler) page(page int) OrdersResponse {
	orders, _ := h.orders.OrdersPage(page)
	if orders == nil {
		orders = []domain.Order{}
	}
	return OrdersResponse{
		Query:   h.orders.Query(),
		Page:    page,
		Count:   h.orders.Count(),
		Loading: h.orders.Loading(),
		Orders:  orders,
	}
}

// List serves a page of the orders list. With uncache set the page is
// fetched past the API cache and the client is redirected to the plain URL.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if uncache, _ := strconv.ParseBool(r.URL.Query().Get("uncache")); uncache {
		if err := h.orders.GetOrders(r.Context(), h.orders.Query(), page, true); err != nil {
			api.HandleError(w, err)
			return
		}
		http.Redirect(w, r, withoutUncache(r.URL), http.StatusSeeOther)
		return
	}

	if _, err := h.orders.ChangePage(r.Context(), page); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.page(page))
}

func withoutUncache(u *url.URL) string {
	q := u.Query()
	q.Del("uncache")
	out := url.URL{Path: u.Path, RawQuery: q.Encode()}
	return out.String()
}

func (h *OrderHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := domain.DefaultOrderQuery()
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.SearchThroughOrders(r.Context(), q); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.page(1))
}

func (h *OrderHandler) SearchDate(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var dq domain.DateQuery
	if err := json.NewDecoder(r.Body).Decode(&dq); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.SearchDate(r.Context(), dq, page); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.page(page))
}

// Scroll appends the next page of the current query.
func (h *OrderHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	fetched, err := h.orders.Scroll(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]any{
		"fetched": fetched,
		"count":   h.orders.Count(),
		"page":    h.orders.Page(),
	})
}

func (h *OrderHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Refresh(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.page(h.orders.Page()))
}

// Get returns one order. The include query parameter names the details to
// load with it: events, meds, tests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	for _, include := range strings.Split(r.URL.Query().Get("include"), ",") {
		switch strings.TrimSpace(include) {
		case "events":
			err = h.orders.GetOrderEvents(r.Context(), order)
		case "meds":
			err = h.orders.GetOrderMeds(r.Context(), order)
		case "tests":
			err = h.orders.GetOrderTests(r.Context(), order)
		}
		if err != nil {
			api.HandleError(w, err)
			return
		}
	}

	api.Success(w, http.StatusOK, order)
}

// RefreshOrder reloads one order's summary, events and results.
func (h *OrderHandler) RefreshOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	updated, err := h.orders.UpdateOrder(r.Context(), order)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, updated)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.orders.CreateOrder(r.Context(), &order)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *OrderHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	result, err := h.orders.RunAction(r.Context(), id, service.OrderAction(chi.URLParam(r, "action")))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]any{"result": result})
}

type SaveMedicationsRequest struct {
	RX  []domain.Medication `json:"rx"`
	SR  []domain.Medication `json:"sr"`
	PRN []domain.Medication `json:"prn"`
}

func (h *OrderHandler) SaveMedications(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req SaveMedicationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.SaveMedications(r.Context(), id, req.RX, req.SR, req.PRN); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitResults posts the entered missing results; saveToSet=true also stores
// them on the order set.
func (h *OrderHandler) SubmitResults(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var missing []domain.MissingResult
	if err := json.NewDecoder(r.Body).Decode(&missing); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saveToSet, _ := strconv.ParseBool(r.URL.Query().Get("saveToSet"))

	order := &domain.Order{ID: id, Missing: missing}
	if err := h.orders.SubmitMissingResults(r.Context(), order, saveToSet); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return int64Param(w, r, "id")
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
