package videos

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// ParseDuration parses the ISO 8601 durations used by the Data API, such as
// PT1H2M3S or P1DT4M.
func ParseDuration(s string) (time.Duration, error) {
	parsed, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed.Negative {
		return 0, fmt.Errorf("invalid duration %q: negative", s)
	}
	return parsed.ToTimeDuration(), nil
}

// FormatDuration renders d as H:MM:SS, or M:SS below an hour.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Second)
	hours, minutes, seconds := total/3600, total%3600/60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
