package insights

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gestionexus/gestionexus/internal/platform/httpx"
	"github.com/gestionexus/gestionexus/internal/shared"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httprate.LimitByIP(30, time.Minute))
	r.Get("/", h.overview)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid date filter", err.Error())
		return
	}
	out, err := h.svc.Overview(r.Context(), window)
	if err != nil {
		h.logger.Error("insights overview failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", shared.UserSafeMessage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func parseWindow(r *http.Request) (Window, error) {
	var w Window
	for _, q := range []struct {
		name string
		dest *string
	}{
		{"startDate", &w.From},
		{"endDate", &w.To},
	} {
		raw := r.URL.Query().Get(q.name)
		if raw == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return Window{}, &badDateError{param: q.name}
		}
		*q.dest = raw
	}
	return w, nil
}

type badDateError struct {
	param string
}

func (e *badDateError) Error() string {
	return e.param + " must be a date formatted YYYY-MM-DD"
}
