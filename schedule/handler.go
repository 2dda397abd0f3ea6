package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"caresign/auth"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type createRequestBody struct {
	Title        string    `json:"title" validate:"required"`
	TemplateID   *string   `json:"template_id" validate:"omitempty,uuid"`
	TypeID       *string   `json:"type_id" validate:"omitempty,uuid"`
	BranchID     *string   `json:"branch_id" validate:"omitempty,uuid"`
	WithClientID *string   `json:"scheduled_with_client_id" validate:"omitempty,uuid"`
	WithStaffID  *string   `json:"scheduled_with_staff_id" validate:"omitempty,uuid"`
	WithName     string    `json:"scheduled_with_name"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Notes        *string   `json:"notes"`
}

// POST /api/scheduled-agreements
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.service.Create(r.Context(), CreateParams{
		Title:        body.Title,
		TemplateID:   body.TemplateID,
		TypeID:       body.TypeID,
		BranchID:     body.BranchID,
		WithClientID: body.WithClientID,
		WithStaffID:  body.WithStaffID,
		WithName:     body.WithName,
		ScheduledFor: body.ScheduledFor,
		Notes:        body.Notes,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(rec))
}

// GET /api/scheduled-agreements
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.service.List(r.Context(), Filters{
		BranchID: q.Get("branch_id"),
		ClientID: q.Get("client_id"),
		StaffID:  q.Get("staff_id"),
		Status:   Status(q.Get("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]scheduledResponse, 0, len(result.Items))
	for _, rec := range result.Items {
		items = append(items, toResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": result.Total})
}

// POST /api/scheduled-agreements/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	role, _ := auth.RoleFromContext(r.Context())

	rec, err := h.service.Cancel(r.Context(), CancelParams{
		ScheduledID: mux.Vars(r)["id"],
		ActorRole:   string(role),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrCancelForbidden):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, ErrCancelInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

type scheduledResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	TemplateID   *string   `json:"template_id,omitempty"`
	TypeID       *string   `json:"type_id,omitempty"`
	BranchID     *string   `json:"branch_id,omitempty"`
	WithClientID *string   `json:"scheduled_with_client_id,omitempty"`
	WithStaffID  *string   `json:"scheduled_with_staff_id,omitempty"`
	WithName     string    `json:"scheduled_with_name"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toResponse(rec ScheduledAgreement) scheduledResponse {
	return scheduledResponse{
		ID:           rec.ID,
		Title:        rec.Title,
		Status:       string(rec.Status),
		TemplateID:   rec.TemplateID,
		TypeID:       rec.TypeID,
		BranchID:     rec.BranchID,
		WithClientID: rec.WithClientID,
		WithStaffID:  rec.WithStaffID,
		WithName:     rec.WithName,
		ScheduledFor: rec.ScheduledFor,
		Notes:        rec.Notes,
		CreatedAt:    rec.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
