package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"yt-notifier/internal/videos"
)

type subscriptionResponse struct {
	ChannelID string `json:"channelId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

type videoResponse struct {
	VideoID      string    `json:"videoId"`
	ChannelID    string    `json:"channelId"`
	ChannelTitle string    `json:"channelTitle"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	NotifiedAt   time.Time `json:"notifiedAt"`
}

func (h *Handlers) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ActiveSubscriptions(r.Context())
	if err != nil {
		h.logger.Error("could not list subscriptions", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		response = append(response, subscriptionResponse{
			ChannelID: sub.ChannelID,
			Title:     sub.ChannelTitle,
			Thumbnail: sub.ChannelThumbnail,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetRecentVideos(w http.ResponseWriter, r *http.Request) {
	sent, err := h.store.RecentSentVideos(r.Context(), recentLimit)
	if err != nil {
		h.logger.Error("could not list sent videos", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := make([]videoResponse, 0, len(sent))
	for _, v := range sent {
		response = append(response, videoResponse{
			VideoID:      v.VideoID,
			ChannelID:    v.ChannelID,
			ChannelTitle: v.ChannelTitle,
			Title:        v.Title,
			URL:          videos.VideoURL(v.VideoID),
			NotifiedAt:   v.NotifiedAt,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
