package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"yt-notifier/internal/models"
)

// recentLimit is the number of sent videos listed by /rss and /videos.
const recentLimit = 50

type Store interface {
	Ping(ctx context.Context) error
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	RecentSentVideos(ctx context.Context, limit int) ([]models.SentVideo, error)
}

type Handlers struct {
	store   Store
	baseURL string
	logger  *slog.Logger
}

func New(store Store, baseURL string, logger *slog.Logger) *Handlers {
	return &Handlers{store: store, baseURL: baseURL, logger: logger}
}

// Router wires the routes. Everything but /healthz goes through protect.
func (h *Handlers) Router(protect ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(protect...)
	api.HandleFunc("/subscriptions", h.GetSubscriptions).Methods(http.MethodGet)
	api.HandleFunc("/videos", h.GetRecentVideos).Methods(http.MethodGet)
	api.HandleFunc("/rss", h.GetRSSFeed).Methods(http.MethodGet)
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
