package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/domain"
	"github.com/cloo-solutions/orderdesk/internal/service"
)

// Session is the signed-in user as seen by the order desk.
type Session interface {
	Login(ctx context.Context, username, password string) error
	Info() map[string]any
	WaitForInfo(ctx context.Context) (map[string]any, error)
	SetCRMID(ctx context.Context, id string) error
	CRMID() string
}

var _ Session = (*service.UserService)(nil)

// Medications is the merged generic and brand catalogue.
type Medications interface {
	Template(t domain.MedicationChoiceTemplate) []domain.Medication
	Counts() (generics, brands int)
}

var _ Medications = (*service.MedicationService)(nil)

const maxInfoWait = 30 * time.Second

type SessionHandler struct {
	user Session
	meds Medications
}

func NewSessionHandler(user Session, meds Medications) *SessionHandler {
	return &SessionHandler{user: user, meds: meds}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	if err := h.user.Login(r.Context(), req.Username, req.Password); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, h.user.Info())
}

// Info returns the user info. With wait=<seconds> it blocks until the host
// has sent it, up to that many seconds.
func (h *SessionHandler) Info(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.Atoi(r.URL.Query().Get("wait"))
	if wait <= 0 {
		info := h.user.Info()
		if info == nil {
			api.Error(w, http.StatusNotFound, "user info not received yet")
			return
		}
		api.Success(w, http.StatusOK, info)
		return
	}

	timeout := min(time.Duration(wait)*time.Second, maxInfoWait)
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	info, err := h.user.WaitForInfo(ctx)
	if err != nil {
		api.Error(w, http.StatusGatewayTimeout, "user info not received in time")
		return
	}
	api.Success(w, http.StatusOK, info)
}

type CRMRequest struct {
	CRMID string `json:"crmId"`
}

func (h *SessionHandler) SetCRM(w http.ResponseWriter, r *http.Request) {
	var req CRMRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.user.SetCRMID(r.Context(), req.CRMID); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, CRMRequest{CRMID: h.user.CRMID()})
}

func (h *SessionHandler) GetCRM(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, CRMRequest{CRMID: h.user.CRMID()})
}

// Medications lists the catalogue entries offered by a choice template.
func (h *SessionHandler) Medications(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.Atoi(r.URL.Query().Get("template"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "template must be a number")
		return
	}

	meds := h.meds.Template(domain.MedicationChoiceTemplate(t))
	if meds == nil {
		meds = []domain.Medication{}
	}
	generics, brands := h.meds.Counts()
	api.Success(w, http.StatusOK, map[string]any{
		"generics":    generics,
		"brands":      brands,
		"medications": meds,
	})
}
