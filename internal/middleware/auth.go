package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// initDataMaxAge bounds how old a Mini App launch may be.
const initDataMaxAge = 24 * time.Hour

// Auth accepts either "Bearer <token>" with the status API token, or
// "tma <initData>" from a Telegram Mini App opened by the owner of the
// notification chat.
type Auth struct {
	apiToken string
	botToken string
	chatID   int64
	logger   *slog.Logger
}

func NewAuth(apiToken, botToken string, chatID int64, logger *slog.Logger) *Auth {
	return &Auth{apiToken: apiToken, botToken: botToken, chatID: chatID, logger: logger}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		scheme, credentials, ok := strings.Cut(authHeader, " ")
		if !ok {
			http.Error(w, "Authorization header format must be 'Bearer <token>' or 'tma <initData>'", http.StatusUnauthorized)
			return
		}

		switch scheme {
		case "Bearer":
			if a.apiToken == "" || subtle.ConstantTimeCompare([]byte(credentials), []byte(a.apiToken)) != 1 {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}
		case "tma":
			if !a.validInitData(credentials) {
				http.Error(w, "Invalid init data", http.StatusUnauthorized)
				return
			}
		default:
			http.Error(w, "Authorization header format must be 'Bearer <token>' or 'tma <initData>'", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Auth) validInitData(raw string) bool {
	if a.botToken == "" {
		return false
	}
	if err := initdata.Validate(raw, a.botToken, initDataMaxAge); err != nil {
		a.logger.Debug("invalid init data", slog.String("error", err.Error()))
		return false
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		a.logger.Debug("could not parse init data", slog.String("error", err.Error()))
		return false
	}
	// A private chat has the same ID as the user in it.
	if data.User.ID != a.chatID {
		a.logger.Warn("init data from unknown user", slog.Int64("userid", data.User.ID))
		return false
	}
	return true
}
