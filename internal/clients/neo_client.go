package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type NEOClient interface {
	FetchFeed(ctx context.Context, startDate, endDate string) (*FeedResponse, error)
	FetchByID(ctx context.Context, asteroidID string) (*Asteroid, error)
	Browse(ctx context.Context, page, size int) (*BrowsePage, error)
}

// ProviderError оборачивает любую ошибку внешнего API NeoWs
type ProviderError struct {
	Op     string
	Status int
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("neo provider %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("neo provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type NEOConfig struct {
	APIKey  string
	BaseURL string
}

type neoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewNEOClient(config NEOConfig) NEOClient {
	return &neoClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		},
	}
}

func (c *neoClient) FetchFeed(ctx context.Context, startDate, endDate string) (*FeedResponse, error) {
	params := url.Values{}
	params.Add("start_date", startDate)
	params.Add("end_date", endDate)

	var feed FeedResponse
	if err := c.get(ctx, "feed", c.baseURL+"/feed", params, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *neoClient) FetchByID(ctx context.Context, asteroidID string) (*Asteroid, error) {
	var asteroid Asteroid
	if err := c.get(ctx, "lookup", c.baseURL+"/neo/"+url.PathEscape(asteroidID), url.Values{}, &asteroid); err != nil {
		return nil, err
	}
	return &asteroid, nil
}

func (c *neoClient) Browse(ctx context.Context, page, size int) (*BrowsePage, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 20
	}

	params := url.Values{}
	params.Add("page", strconv.Itoa(page))
	params.Add("size", strconv.Itoa(size))

	var browse BrowsePage
	if err := c.get(ctx, "browse", c.baseURL+"/neo/browse", params, &browse); err != nil {
		return nil, err
	}
	return &browse, nil
}

func (c *neoClient) get(ctx context.Context, op, reqURL string, params url.Values, dest interface{}) error {
	if c.apiKey != "" {
		params.Add("api_key", c.apiKey)
	}
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", "NEO-Watch/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error содержит полный URL вместе с api_key, наружу его не отдаем
		var reason error
		if uerr, ok := err.(*url.Error); ok {
			reason = fmt.Errorf("execute request: %w", uerr.Err)
		} else {
			reason = fmt.Errorf("execute request: %w", err)
		}
		return &ProviderError{Op: op, Err: reason}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &ProviderError{Op: op, Err: fmt.Errorf("decode JSON: %w", err)}
	}

	return nil
}
