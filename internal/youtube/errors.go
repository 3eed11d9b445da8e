package youtube

import (
	"errors"
	"net/http"

	"github.com/mmcdole/gofeed"
	"google.golang.org/api/googleapi"

	"yt-notifier/internal/apperr"
)

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"dailyLimitExceeded":    true,
}

// IsQuotaError reports whether err is the Data API or the feed host
// signalling rate or quota exhaustion.
func IsQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		if apiErr.Code == http.StatusForbidden {
			for _, item := range apiErr.Errors {
				if quotaReasons[item.Reason] {
					return true
				}
			}
		}
		return false
	}

	var feedErr gofeed.HTTPError
	if errors.As(err, &feedErr) {
		return feedErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsQuotaError(err) {
		return apperr.Quota(err)
	}
	return err
}
