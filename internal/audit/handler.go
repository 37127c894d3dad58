package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gestionexus/gestionexus/internal/platform/httpx"
	"github.com/gestionexus/gestionexus/internal/shared"
)

const (
	rateLimit  = 30
	rateWindow = time.Minute
)

// Handler serves the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes. The listing is rate limited per actor
// since the search predicate is unindexed.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "")
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/", h.handleTimeline)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("limit"))

	filters := TimelineFilters{
		Search:   query.Get("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if from := query.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.From = t
		}
	}
	if to := query.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.To = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", shared.UserSafeMessage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func rateLimitKey(r *http.Request) (string, error) {
	actor := shared.ActorFromContext(r.Context())
	if actor.ID != 0 {
		return "actor:" + strconv.FormatInt(actor.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + strings.TrimSpace(key), nil
}
