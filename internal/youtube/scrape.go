package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const initialDataPrefix = "var ytInitialData = "

var errNoInitialData = errors.New("no ytInitialData in page")

// PageScraper extracts a channel ID from the channel page markup.
type PageScraper struct {
	client *http.Client
}

func NewPageScraper(client *http.Client) *PageScraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PageScraper{client: client}
}

type initialData struct {
	Metadata struct {
		ChannelMetadataRenderer struct {
			RSSURL     string `json:"rssUrl"`
			ExternalID string `json:"externalId"`
		} `json:"channelMetadataRenderer"`
	} `json:"metadata"`
}

// ScrapeChannelID fetches pageURL and reads the channel ID from the embedded
// ytInitialData blob.
func (p *PageScraper) ScrapeChannelID(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	// Without a consent cookie EU visitors get an interstitial page.
	req.Header.Set("Accept-Language", "en")
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+"})

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch channel page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch channel page: unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse channel page: %w", err)
	}

	var blob string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, initialDataPrefix) {
			blob = strings.TrimSuffix(strings.TrimPrefix(text, initialDataPrefix), ";")
			return false
		}
		return true
	})
	if blob == "" {
		return "", errNoInitialData
	}

	var data initialData
	if err := json.Unmarshal([]byte(blob), &data); err != nil {
		return "", fmt.Errorf("decode ytInitialData: %w", err)
	}

	meta := data.Metadata.ChannelMetadataRenderer
	if meta.RSSURL != "" {
		rss, err := url.Parse(meta.RSSURL)
		if err == nil {
			if id := rss.Query().Get("channel_id"); id != "" {
				return id, nil
			}
		}
	}
	if meta.ExternalID != "" {
		return meta.ExternalID, nil
	}

	return "", errors.New("no channel id in ytInitialData")
}
