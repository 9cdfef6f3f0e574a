package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"leavedesk/internal/logger"
	"leavedesk/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const holidayCacheTTL = 24 * time.Hour

// GovUKSource fetches UK bank holidays from the gov.uk JSON feed, with an
// optional redis cache in front of it.
type GovUKSource struct {
	client   *http.Client
	url      string
	division string
	cache    *redis.Client
}

func NewGovUKSource(url, division string, cache *redis.Client) *GovUKSource {
	return &GovUKSource{
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      url,
		division: division,
		cache:    cache,
	}
}

type govukFeed map[string]struct {
	Division string `json:"division"`
	Events   []struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"events"`
}

func (s *GovUKSource) Holidays(ctx context.Context) (map[string]bool, error) {
	cacheKey := "holidays:" + s.division

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var days []string
			if err := json.Unmarshal(data, &days); err == nil {
				return toSet(days), nil
			}
		}
	}

	days, err := s.fetch(ctx)
	if err != nil {
		metrics.RecordHolidaySourceFailure()
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(days); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, holidayCacheTTL).Err(); err != nil {
				logger.Errorf("Failed to cache holidays: %v", err)
			}
		}
	}

	return toSet(days), nil
}

func (s *GovUKSource) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank holidays: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bank holiday feed returned status %d", resp.StatusCode)
	}

	var feed govukFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode bank holiday feed: %w", err)
	}

	division, ok := feed[s.division]
	if !ok {
		return nil, fmt.Errorf("division %q not present in bank holiday feed", s.division)
	}

	days := make([]string, 0, len(division.Events))
	for _, event := range division.Events {
		days = append(days, event.Date)
	}
	sort.Strings(days)

	return days, nil
}

func toSet(days []string) map[string]bool {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
