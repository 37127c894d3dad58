package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gestionexus/gestionexus/internal/platform/httpx"
	"github.com/gestionexus/gestionexus/internal/shared"
)

// Handler manages product catalog endpoints.
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

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	r.Get("/{id}", h.getProduct)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deleteProduct)
	r.Get("/reference/{ref}", h.getByReference)
	r.Get("/low-stock", h.lowStock)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	products, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.respondError(w, "list low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:          r.URL.Query().Get("search"),
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true",
	}
	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) getByReference(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductByReference(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.respondError(w, "get product by reference", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type productRequest struct {
	Name        string  `json:"name" validate:"required"`
	Reference   string  `json:"reference"`
	Description string  `json:"description"`
	Quantity    *int    `json:"quantity" validate:"required,gte=0"`
	Price       float64 `json:"price" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondError(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.respondError(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.DeactivateProduct(r.Context(), id, actor.ID, actor.Name); err != nil {
		h.respondError(w, "deactivate product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"msg": "product deactivated"})
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", "")
		return ProductInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		fields := map[string]string{}
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, fieldErr := range validationErrs {
				fields[fieldErr.Field()] = "failed on " + fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return ProductInput{}, false
	}
	actor := shared.ActorFromContext(r.Context())
	return ProductInput{
		Name:        req.Name,
		Reference:   req.Reference,
		Description: req.Description,
		Quantity:    *req.Quantity,
		Price:       req.Price,
		Cost:        req.Cost,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
	}, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var validationErr *shared.ValidationError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "product not found", "")
	case errors.As(err, &validationErr):
		httpx.ValidationProblem(w, validationErr.Fields)
	case errors.Is(err, ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "duplicate reference", ErrDuplicateReference.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", shared.UserSafeMessage(err))
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid product id", "")
		return 0, false
	}
	return id, true
}
