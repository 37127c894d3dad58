package layaway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestionexus/gestionexus/internal/platform/httpx"
	"github.com/gestionexus/gestionexus/internal/shared"
)

// Handler manages layaway plan endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers layaway routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPlans)
	r.Post("/", h.createPlan)
	r.Get("/{id}", h.getPlan)
	r.Put("/{id}", h.updatePlan)
	r.Delete("/{id}", h.deletePlan)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
	if filter.Status == "" {
		filter.Status = "active"
	}
	plans, err := h.service.ListPlans(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list plans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plans)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := planID(w, r)
	if !ok {
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.respondError(w, "get plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

type planItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type createPlanRequest struct {
	CustomerName    string            `json:"customer_name" validate:"required"`
	CustomerIDDoc   string            `json:"customer_id_doc"`
	CustomerContact string            `json:"customer_contact"`
	TotalValue      float64           `json:"total_value" validate:"required,gt=0"`
	DownPayment     *float64          `json:"down_payment" validate:"required,gte=0"`
	Deadline        string            `json:"deadline" validate:"required"`
	Products        []planItemRequest `json:"products" validate:"required,min=1,dive"`
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if fields := h.validateStruct(req); len(fields) > 0 {
		httpx.ValidationProblem(w, fields)
		return
	}
	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"deadline": "deadline must be a date (YYYY-MM-DD)"})
		return
	}

	actor := shared.ActorFromContext(r.Context())
	input := CreateInput{
		CustomerName:    req.CustomerName,
		CustomerIDDoc:   req.CustomerIDDoc,
		CustomerContact: req.CustomerContact,
		TotalValue:      req.TotalValue,
		DownPayment:     *req.DownPayment,
		Deadline:        deadline,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		ActorID:         actor.ID,
		ActorName:       actor.Name,
	}
	for _, p := range req.Products {
		input.Items = append(input.Items, ItemInput{ProductID: p.ProductID, Quantity: p.Quantity})
	}

	plan, err := h.service.CreatePlan(r.Context(), input)
	if err != nil {
		h.respondError(w, "create plan", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

type updatePlanRequest struct {
	// NewPaymentAmount is decoded leniently: numbers and numeric strings are
	// payments, anything else means "no payment".
	NewPaymentAmount json.RawMessage `json:"new_payment_amount"`
	Status           string          `json:"status"`
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := planID(w, r)
	if !ok {
		return
	}
	var req updatePlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	actor := shared.ActorFromContext(r.Context())
	input := UpdateInput{
		PaymentAmount: parsePayment(req.NewPaymentAmount),
		ActorID:       actor.ID,
		ActorName:     actor.Name,
	}
	if req.Status != "" {
		status := PlanStatus(req.Status)
		input.Status = &status
	}

	plan, err := h.service.UpdatePlan(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := planID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.CancelPlan(r.Context(), id, actor.ID, actor.Name); err != nil {
		h.respondError(w, "cancel plan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"msg": "layaway plan removed and stock returned"})
}

func (h *Handler) validateStruct(v any) map[string]string {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}
	fields := map[string]string{}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			fields[fieldErr.Field()] = "failed on " + fieldErr.Tag()
		}
	} else {
		fields["request"] = "invalid request"
	}
	return fields
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var validationErr *shared.ValidationError
	var stockErr *shared.InsufficientStockError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "layaway plan not found", "")
	case errors.As(err, &validationErr):
		httpx.ValidationProblem(w, validationErr.Fields)
	case errors.As(err, &stockErr):
		httpx.Problem(w, http.StatusConflict, "insufficient stock", stockErr.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "duplicate request", shared.ErrIdempotencyConflict.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", shared.UserSafeMessage(err))
	}
}

// parsePayment mirrors the permissive behaviour of the admin frontend: a JSON
// number or a numeric string is a payment, everything else is no payment.
func parsePayment(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var amount float64
	if err := json.Unmarshal(raw, &amount); err == nil {
		return &amount
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if amount, err := strconv.ParseFloat(text, 64); err == nil {
			return &amount
		}
	}
	return nil
}

func planID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid plan id", "")
		return 0, false
	}
	return id, true
}
