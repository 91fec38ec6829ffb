package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/pagination"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

// AdminDesk maintains the reference data behind orders.
type AdminDesk interface {
	GetOrderSet(ctx context.Context, id int64) (*domain.OrderSet, error)
	SaveOrderSet(ctx context.Context, set *domain.OrderSet) (json.RawMessage, error)
	DeleteOrderSet(ctx context.Context, id int64) error
	GetProfileTests(ctx context.Context, testID int64) ([]domain.OrderTest, error)
	GetResultTests(ctx context.Context, panels []domain.OrderPanel) ([]domain.OrderSetResult, error)
	GetOrderResults(ctx context.Context, hostCode string) ([]domain.OrderSetResult, error)

	GetMedSet(ctx context.Context, id int64) (*domain.MedicationSet, error)
	SaveMedSet(ctx context.Context, set *domain.MedicationSet) (json.RawMessage, error)
	DeleteMedSet(ctx context.Context, id int64) error

	SearchTestPatients(ctx context.Context, query string, page int) (pagination.Page[domain.TestPatient], error)
	GetTestPatient(ctx context.Context, id int64) (*domain.TestPatient, error)
	CreateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error)
	UpdateTestPatient(ctx context.Context, p *domain.TestPatient) (json.RawMessage, error)

	SearchScheduledOrders(ctx context.Context, q domain.OrderQuery, page int, uncache bool) (pagination.Page[domain.ScheduledOrder], error)
	LoadScheduledOrder(ctx context.Context, id int64) (*domain.ScheduledOrder, error)
	SaveScheduledOrder(ctx context.Context, order *domain.ScheduledOrder) (json.RawMessage, error)
	DeleteScheduledOrder(ctx context.Context, id int64) error

	SearchTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error)
	SearchProfiles(ctx context.Context, query string, page int) (pagination.Page[domain.OrderPanel], error)
	SearchResults(ctx context.Context, query string, page int) (pagination.Page[domain.OrderSetResult], error)
	SearchTdTests(ctx context.Context, query string, page int) (pagination.Page[domain.OrderTdPanel], error)
}

var _ AdminDesk = (*service.AdminService)(nil)

type AdminHandler struct {
	admin AdminDesk
}

func NewAdminHandler(admin AdminDesk) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, status, data)
}

func respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Order sets

func (h *AdminHandler) GetOrderSet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	set, err := h.admin.GetOrderSet(r.Context(), id)
	respond(w, http.StatusOK, set, err)
}

func (h *AdminHandler) SaveOrderSet(w http.ResponseWriter, r *http.Request) {
	var set domain.OrderSet
	if !decodeBody(w, r, &set) {
		return
	}
	out, err := h.admin.SaveOrderSet(r.Context(), &set)
	respond(w, http.StatusOK, out, err)
}

func (h *AdminHandler) DeleteOrderSet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	respondDeleted(w, h.admin.DeleteOrderSet(r.Context(), id))
}

func (h *AdminHandler) ProfileTests(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	tests, err := h.admin.GetProfileTests(r.Context(), id)
	respond(w, http.StatusOK, tests, err)
}

// ResultTests maps the posted panels to the result tests they produce.
func (h *AdminHandler) ResultTests(w http.ResponseWriter, r *http.Request) {
	var panels []domain.OrderPanel
	if !decodeBody(w, r, &panels) {
		return
	}
	results, err := h.admin.GetResultTests(r.Context(), panels)
	respond(w, http.StatusOK, results, err)
}

func (h *AdminHandler) OrderResults(w http.ResponseWriter, r *http.Request) {
	hostCode := chi.URLParam(r, "hostCode")
	if hostCode == "" {
		api.Error(w, http.StatusBadRequest, "host code is required")
		return
	}
	results, err := h.admin.GetOrderResults(r.Context(), hostCode)
	respond(w, http.StatusOK, results, err)
}

// Medication sets

func (h *AdminHandler) GetMedSet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	set, err := h.admin.GetMedSet(r.Context(), id)
	respond(w, http.StatusOK, set, err)
}

func (h *AdminHandler) SaveMedSet(w http.ResponseWriter, r *http.Request) {
	var set domain.MedicationSet
	if !decodeBody(w, r, &set) {
		return
	}
	out, err := h.admin.SaveMedSet(r.Context(), &set)
	respond(w, http.StatusOK, out, err)
}

func (h *AdminHandler) DeleteMedSet(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	respondDeleted(w, h.admin.DeleteMedSet(r.Context(), id))
}

// Test patients

func (h *AdminHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	result, err := h.admin.SearchTestPatients(r.Context(), r.URL.Query().Get("query"), page)
	respond(w, http.StatusOK, result, err)
}

func (h *AdminHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	p, err := h.admin.GetTestPatient(r.Context(), id)
	respond(w, http.StatusOK, p, err)
}

func (h *AdminHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var p domain.TestPatient
	if !decodeBody(w, r, &p) {
		return
	}
	out, err := h.admin.CreateTestPatient(r.Context(), &p)
	respond(w, http.StatusCreated, out, err)
}

func (h *AdminHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	var p domain.TestPatient
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = id
	out, err := h.admin.UpdateTestPatient(r.Context(), &p)
	respond(w, http.StatusOK, out, err)
}

// Scheduled orders

// SearchScheduled lists scheduled orders matching searchBy/term.
func (h *AdminHandler) SearchScheduled(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	q := domain.DefaultOrderQuery()
	if searchBy := r.URL.Query().Get("searchBy"); searchBy != "" {
		q.SearchBy = searchBy
	}
	q.Term = r.URL.Query().Get("term")
	q.ExactMatch, _ = strconv.ParseBool(r.URL.Query().Get("exact"))
	uncache, _ := strconv.ParseBool(r.URL.Query().Get("uncache"))

	result, err := h.admin.SearchScheduledOrders(r.Context(), q, page, uncache)
	respond(w, http.StatusOK, result, err)
}

func (h *AdminHandler) GetScheduled(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	order, err := h.admin.LoadScheduledOrder(r.Context(), id)
	respond(w, http.StatusOK, order, err)
}

func (h *AdminHandler) SaveScheduled(w http.ResponseWriter, r *http.Request) {
	order := domain.NewScheduledOrder()
	if !decodeBody(w, r, order) {
		return
	}
	out, err := h.admin.SaveScheduledOrder(r.Context(), order)
	respond(w, http.StatusOK, out, err)
}

func (h *AdminHandler) DeleteScheduled(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	respondDeleted(w, h.admin.DeleteScheduledOrder(r.Context(), id))
}

// Catalog searches the lab catalogue: tests, profiles, results or tdTests.
func (h *AdminHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	query := r.URL.Query().Get("query")

	var result any
	switch chi.URLParam(r, "kind") {
	case "tests":
		result, err = h.admin.SearchTests(r.Context(), query, page)
	case "profiles":
		result, err = h.admin.SearchProfiles(r.Context(), query, page)
	case "results":
		result, err = h.admin.SearchResults(r.Context(), query, page)
	case "tdTests":
		result, err = h.admin.SearchTdTests(r.Context(), query, page)
	default:
		err = domain.ErrUnknownSearchDomain
	}
	respond(w, http.StatusOK, result, err)
}
