package notifications

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gestionexus/gestionexus/internal/platform/httpx"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httprate.LimitByIP(60, time.Minute))
	r.Get("/", h.feed)
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.Feed(r.Context())
	if err != nil {
		h.logger.Error("notification feed failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "could not assemble notifications")
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}
