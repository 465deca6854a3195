package flightclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/flightapp/platform/internal/domain"
	"github.com/rs/zerolog"
)

// Client talks to the flight-inventory service's internal REST surface. The
// two operations block an in-flight booking, so transient failures are
// retried a bounded number of times with backoff and then surfaced as
// ErrInventoryUnreachable; rejections (404, 409) are never retried.
type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
	retries int
	backoff time.Duration
}

func New(log zerolog.Logger, baseURL string, retries int, backoff, timeout time.Duration) *Client {
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Client{
		log:     log,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		retries: retries,
		backoff: backoff,
	}
}

func (c *Client) GetFlight(ctx context.Context, flightID int64) (*domain.FlightSummary, error) {
	url := fmt.Sprintf("%s/internal/flight/%d", c.baseURL, flightID)

	var summary domain.FlightSummary
	err := c.do(ctx, http.MethodGet, url, func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &summary)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// AdjustSeats moves a flight's available-seat counter by delta: negative
// reserves, positive releases.
func (c *Client) AdjustSeats(ctx context.Context, flightID int64, delta int) error {
	url := fmt.Sprintf("%s/internal/flight/%d/seats?count=%s", c.baseURL, flightID, strconv.Itoa(delta))
	return c.do(ctx, http.MethodPut, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, decode func(*http.Response) error) error {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrInventoryUnreachable, ctx.Err())
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("url", url).Int("attempt", attempt+1).Msg("inventory call failed")
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("flight service: %w", domain.ErrNotFound)
		case resp.StatusCode == http.StatusConflict:
			resp.Body.Close()
			return fmt.Errorf("flight service: %w", domain.ErrInsufficientCapacity)
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("flight service returned %d", resp.StatusCode)
			c.log.Warn().Int("status", resp.StatusCode).Str("url", url).Int("attempt", attempt+1).Msg("inventory call failed")
			continue
		case resp.StatusCode >= 400:
			resp.Body.Close()
			return fmt.Errorf("%w: flight service returned %d", domain.ErrValidation, resp.StatusCode)
		}

		var decodeErr error
		if decode != nil {
			decodeErr = decode(resp)
		}
		resp.Body.Close()
		return decodeErr
	}
	return fmt.Errorf("%w: %v", domain.ErrInventoryUnreachable, lastErr)
}
