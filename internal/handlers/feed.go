package handlers

import (
	"log/slog"
	"net/http"

	"yt-notifier/internal/feed"
)

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	sent, err := h.store.RecentSentVideos(r.Context(), recentLimit)
	if err != nil {
		h.logger.Error("could not list sent videos", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.GenerateRSS(sent, feed.BaseURL(h.baseURL, r))
	if err != nil {
		h.logger.Error("could not generate rss", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}
