// Package api serves the agent's local HTTP interface. The popup and
// settings UI consume it: current warnings, settings read/write, status,
// a manual check trigger, and a server-sent event stream carrying surface
// events and store changes.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/alertsource"
	"github.com/redalert-watch/warningd/internal/controller"
	"github.com/redalert-watch/warningd/internal/i18n"
	"github.com/redalert-watch/warningd/internal/presenter"
	"github.com/redalert-watch/warningd/internal/scheduler"
	"github.com/redalert-watch/warningd/internal/settings"
	"github.com/redalert-watch/warningd/internal/store"
)

// Handler wires the HTTP surface to the agent's components.
type Handler struct {
	settings   *settings.Service
	controller *controller.Controller
	surface    *presenter.WebSurface
	store      *store.Store
	scheduler  *scheduler.Scheduler
	logger     *zap.Logger
}

// New creates the API handler.
func New(
	settingsService *settings.Service,
	ctrl *controller.Controller,
	surface *presenter.WebSurface,
	st *store.Store,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		settings:   settingsService,
		controller: ctrl,
		surface:    surface,
		store:      st,
		scheduler:  sched,
		logger:     logger,
	}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.requestLogging)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.putSettings).Methods(http.MethodPut)
	api.HandleFunc("/warnings", h.getWarnings).Methods(http.MethodGet)
	api.HandleFunc("/status", h.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/check", h.postCheck).Methods(http.MethodPost)
	api.HandleFunc("/popup/open", h.postOpenPopup).Methods(http.MethodPost)
	api.HandleFunc("/windows", h.postWindow).Methods(http.MethodPost)
	api.HandleFunc("/windows/{id}", h.deleteWindow).Methods(http.MethodDelete)
	api.HandleFunc("/events", h.getEvents).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

func (h *Handler) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		h.logger.Debug("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	})
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.settings.Load())
}

type saveSettingsResponse struct {
	Settings settings.Settings `json:"settings"`
	Notices  []settings.Notice `json:"notices,omitempty"`
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid settings payload", http.StatusBadRequest)
		return
	}

	applied, notices, err := h.settings.Save(in)
	if err != nil {
		h.logger.Error("Failed to save settings", zap.Error(err))
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	// A changed interval or polling toggle takes effect without waiting
	// out the old period.
	h.scheduler.Kick()

	// Clamp notices are one-time: surfaced in the response and as a
	// notification in the user's language.
	if len(notices) > 0 {
		cat := i18n.For(applied.Language)
		for _, notice := range notices {
			n := presenter.Notification{
				Title:   cat.ClampNoticeTitle(),
				Message: notice.Message,
				RTL:     cat.RTL(),
			}
			if err := h.surface.CreateNotification("settings-notice-"+notice.Key, n); err != nil {
				h.logger.Error("Failed to surface clamp notice", zap.Error(err))
			}
		}
	}

	h.writeJSON(w, http.StatusOK, saveSettingsResponse{Settings: applied, Notices: notices})
}

func (h *Handler) getWarnings(w http.ResponseWriter, r *http.Request) {
	items, err := h.controller.Warnings()
	if err != nil {
		h.logger.Error("Failed to read warning set", zap.Error(err))
		http.Error(w, "failed to read warnings", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []alertsource.AlertRecord{}
	}
	h.writeJSON(w, http.StatusOK, items)
}

type statusResponse struct {
	controller.Status
	Icon string `json:"icon"`
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, statusResponse{
		Status: h.controller.Status(),
		Icon:   h.surface.Icon().String(),
	})
}

type checkResponse struct {
	Ran bool `json:"ran"`
}

// postCheck triggers a poll cycle immediately. A cycle already in flight
// wins; the trigger is dropped and reported as such.
func (h *Handler) postCheck(w http.ResponseWriter, r *http.Request) {
	ran := h.controller.RunCycle(r.Context())
	h.writeJSON(w, http.StatusOK, checkResponse{Ran: ran})
}

func (h *Handler) postOpenPopup(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.OpenPopup(); err != nil {
		h.logger.Error("Failed to open popup", zap.Error(err))
		http.Error(w, "failed to open popup", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postWindow(w http.ResponseWriter, r *http.Request) {
	var win presenter.Window
	if err := json.NewDecoder(r.Body).Decode(&win); err != nil {
		http.Error(w, "invalid window payload", http.StatusBadRequest)
		return
	}
	if win.URL == "" {
		http.Error(w, "window url is required", http.StatusBadRequest)
		return
	}
	if win.Type == "" {
		win.Type = presenter.WindowTypePopup
	}

	registered := h.surface.RegisterWindow(win)
	h.writeJSON(w, http.StatusCreated, registered)
}

func (h *Handler) deleteWindow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.surface.CloseWindow(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
