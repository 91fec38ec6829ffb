package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/search"
	"github.com/cloo-solutions/orderdesk/internal/telemetry"
)

// OrderService owns the orders list cache. It lives for the whole process so
// that the list survives navigation; it is refreshed only on demand.
type OrderService struct {
	api    API
	orders *search.State[domain.OrderQuery, domain.Order]
}

func NewOrderService(api API, opts ...search.Option) *OrderService {
	s := &OrderService{api: api}
	s.orders = search.NewState[domain.OrderQuery, domain.Order]("orders", s.searchOrders, opts...)
	return s
}

func (s *OrderService) searchOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) (pagination.Page[domain.Order], error) {
	return searchPage[domain.Order](ctx, s.api, withUncache(fmt.Sprintf("demo/order/search/%d", page), uncache), q)
}

// GetOrders loads one page of q into the cache and moves the cursor there.
func (s *OrderService) GetOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.GetOrders", telemetry.SpanAttributes{
		Page:      page,
		Operation: "list",
	})
	defer span.End()

	return s.orders.Load(ctx, page, func(ctx context.Context) (pagination.Page[domain.Order], error) {
		return s.searchOrders(ctx, q, page, uncache)
	})
}

// SetQuery feeds the orders search box; evaluation is debounced.
func (s *OrderService) SetQuery(q domain.OrderQuery) {
	s.orders.SetQuery(q)
}

// SearchThroughOrders evaluates q immediately and replaces the cache.
func (s *OrderService) SearchThroughOrders(ctx context.Context, q domain.OrderQuery) error {
	return s.orders.Evaluate(ctx, q)
}

// SearchDate loads one page of orders created within dq.
func (s *OrderService) SearchDate(ctx context.Context, dq domain.DateQuery, page int) error {
	if err := dq.Validate(); err != nil {
		return err
	}
	return s.orders.Load(ctx, page, func(ctx context.Context) (pagination.Page[domain.Order], error) {
		return searchPage[domain.Order](ctx, s.api, fmt.Sprintf("demo/order/searchDateRange/%d", page), dq)
	})
}

func (s *OrderService) ChangePage(ctx context.Context, page int) (bool, error) {
	return s.orders.ChangePage(ctx, page)
}

// Refresh re-fetches the current page bypassing the API cache.
func (s *OrderService) Refresh(ctx context.Context) error {
	return s.orders.Invalidate(ctx)
}

// Scroll appends the next page of the current query.
func (s *OrderService) Scroll(ctx context.Context) (bool, error) {
	return s.orders.Scroll(ctx)
}

// GetOrder returns the cached order or fetches it.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if order, ok := s.orders.Lookup(func(o domain.Order) bool { return o.ID == id }); ok {
		return &order, nil
	}

	var order domain.Order
	if err := s.api.Get(ctx, fmt.Sprintf("demo/order/view/%d", id), &order); err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

// UpdateCachedOrder replaces every cached copy of order.
func (s *OrderService) UpdateCachedOrder(order *domain.Order) bool {
	return s.orders.Update(func(o domain.Order) bool { return o.ID == order.ID }, *order) > 0
}

// OrdersPage returns a cached page, newest order first.
func (s *OrderService) OrdersPage(page int) ([]domain.Order, bool) {
	orders, ok := s.orders.PageItems(page)
	if !ok {
		return nil, false
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, true
}

func (s *OrderService) Count() int {
	return s.orders.Count()
}

func (s *OrderService) Page() int {
	return s.orders.Page()
}

func (s *OrderService) Loading() bool {
	return s.orders.Loading()
}

func (s *OrderService) Query() domain.OrderQuery {
	return s.orders.Query()
}

// GetOrderEvents loads the event timeline of order and derives its status.
func (s *OrderService) GetOrderEvents(ctx context.Context, order *domain.Order) error {
	var events []domain.OrderEvent
	if err := s.api.Get(ctx, fmt.Sprintf("demo/order/events/%d", order.ID), &events); err != nil {
		return err
	}
	order.Events = events
	order.Status = domain.StatusFromEvents(events)
	return nil
}

// UpdateOrder reloads an order's summary, events and results and refreshes
// the cached copy.
func (s *OrderService) UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.UpdateOrder", telemetry.SpanAttributes{
		OrderID:   order.ID,
		Operation: "update",
	})
	defer span.End()

	var update domain.OrderUpdate
	if err := s.api.Get(ctx, fmt.Sprintf("demo/order/update/%d", order.ID), &update); err != nil {
		span.SetError(err)
		return nil, err
	}

	merged := update.Merge(order)
	s.UpdateCachedOrder(merged)
	return merged, nil
}

func (s *OrderService) GetOrderMeds(ctx context.Context, order *domain.Order) error {
	var medSet domain.MedicationSet
	if err := s.api.Get(ctx, fmt.Sprintf("demo/order/meds/%d", order.ID), &medSet); err != nil {
		return err
	}
	order.MedSet = &medSet
	return nil
}

// GetOrderTests loads the panels of the order's order set.
func (s *OrderService) GetOrderTests(ctx context.Context, order *domain.Order) error {
	if order.OrderSet == nil {
		return domain.ErrIncompleteOrder
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, fmt.Sprintf("demo/order/tests/%d", order.OrderSet.ID), &raw); err != nil {
		return err
	}
	panels, err := decodeList[domain.OrderPanel](raw)
	if err != nil {
		return fmt.Errorf("failed to decode order tests: %w", err)
	}
	order.OrderSet.Panels = panels
	return nil
}

// CreateOrder creates an order and refreshes the current list page. It
// returns the new order id.
func (s *OrderService) CreateOrder(ctx context.Context, order *domain.Order) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.CreateOrder", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	input, err := order.CreateInput()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := s.api.Post(ctx, "demo/actions/create", input, &id); err != nil {
		span.SetError(err)
		return 0, err
	}

	if err := s.Refresh(ctx); err != nil {
		log.Printf("orders: refresh after create failed: %v", err)
	}
	return id, nil
}

// OrderAction names an action that can be run against an order.
type OrderAction string

const (
	ActionSendToCopia      OrderAction = "send-to-copia"
	ActionSendToLIS        OrderAction = "send-to-lis"
	ActionSendResultsToLIS OrderAction = "send-results-to-lis"
	ActionPrintReport      OrderAction = "print-report"
	ActionSendMedications  OrderAction = "send-medications"
	ActionFullProcess      OrderAction = "full-process"
	ActionLoadStatus       OrderAction = "load-status"
)

func OrderActions() []OrderAction {
	return []OrderAction{
		ActionSendToCopia, ActionSendToLIS, ActionSendResultsToLIS, ActionPrintReport,
		ActionSendMedications, ActionFullProcess, ActionLoadStatus,
	}
}

// RunAction runs a named action against an order.
func (s *OrderService) RunAction(ctx context.Context, orderID int64, action OrderAction) (any, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.RunAction", telemetry.SpanAttributes{
		OrderID:   orderID,
		Operation: string(action),
	})
	defer span.End()

	switch action {
	case ActionSendToCopia:
		return s.SendToCopia(ctx, orderID)
	case ActionSendToLIS:
		return s.SendToLIS(ctx, orderID)
	case ActionSendResultsToLIS:
		return s.SendResultsToLIS(ctx, orderID)
	case ActionPrintReport:
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return s.PrintReport(ctx, order.AccessionID)
	case ActionSendMedications:
		return s.SendMedications(ctx, orderID)
	case ActionFullProcess:
		return s.FullProcess(ctx, orderID)
	case ActionLoadStatus:
		return nil, s.UpdateOrderStatus(ctx, orderID)
	default:
		return nil, domain.ErrUnknownOrderAction
	}
}

// flag runs an action endpoint that answers with a success boolean.
func (s *OrderService) flag(ctx context.Context, path, what string) (bool, error) {
	var ok bool
	if err := s.api.Get(ctx, path, &ok); err != nil {
		return false, err
	}
	if ok {
		log.Printf("orders: %s", what)
	} else {
		log.Printf("orders: not %s", what)
	}
	return ok, nil
}

func (s *OrderService) SendToCopia(ctx context.Context, orderID int64) (bool, error) {
	return s.flag(ctx, fmt.Sprintf("demo/actions/sendToCopia/%d", orderID), "order sent to copia")
}

func (s *OrderService) SendToLIS(ctx context.Context, orderID int64) (bool, error) {
	return s.flag(ctx, fmt.Sprintf("demo/actions/release/%d", orderID), "order sent to lis")
}

func (s *OrderService) SendResultsToLIS(ctx context.Context, orderID int64) (bool, error) {
	return s.flag(ctx, fmt.Sprintf("demo/actions/result/%d", orderID), "results sent to lis")
}

// PrintReport requests a duplicate of the accession's report.
func (s *OrderService) PrintReport(ctx context.Context, accessionID int64) (bool, error) {
	return s.flag(ctx, fmt.Sprintf("accession/dupe/%d/10", accessionID), "report duped")
}

func (s *OrderService) SendMedications(ctx context.Context, orderID int64) (bool, error) {
	return s.flag(ctx, fmt.Sprintf("demo/actions/sendMeds/%d", orderID), "medications sent")
}

// SaveMedications stores the order's medications tagged by source.
func (s *OrderService) SaveMedications(ctx context.Context, orderID int64, rx, sr, prn []domain.Medication) error {
	return s.api.Post(ctx, fmt.Sprintf("demo/actions/saveMeds/%d", orderID), domain.TagMedications(rx, sr, prn), nil)
}

// FullProcess runs every remaining step of the order workflow.
func (s *OrderService) FullProcess(ctx context.Context, orderID int64) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.api.Get(ctx, fmt.Sprintf("demo/process/%d", orderID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitMissingResults posts the results entered for the order's missing
// tests, optionally saving them to the order set as well.
func (s *OrderService) SubmitMissingResults(ctx context.Context, order *domain.Order, saveToSet bool) error {
	path := fmt.Sprintf("demo/actions/result/%d", order.ID)
	if saveToSet {
		path += "/1"
	}

	missing := make([]domain.MissingResult, len(order.Missing))
	for i, m := range order.Missing {
		m.HostCode = m.Code
		missing[i] = m
	}
	return s.api.Post(ctx, path, missing, nil)
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64) error {
	return s.api.Get(ctx, fmt.Sprintf("demo/order/load_status/%d", orderID), nil)
}

// Search runs a free-text search over one domain.
func (s *OrderService) Search(ctx context.Context, d domain.SearchDomain, query string, page int, uncache bool) (pagination.Page[json.RawMessage], error) {
	return Search[json.RawMessage](ctx, s.api, d, query, page, uncache)
}

func (s *OrderService) SearchMedSets(ctx context.Context, query string, page int, uncache bool) (pagination.Page[domain.MedicationSet], error) {
	return Search[domain.MedicationSet](ctx, s.api, domain.SearchMedSets, query, page, uncache)
}

// Close stops the cache's pending work.
func (s *OrderService) Close() {
	s.orders.Close()
}
