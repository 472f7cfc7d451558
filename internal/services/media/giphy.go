package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	// DefaultEndpoint is the random GIF endpoint
	DefaultEndpoint = "https://api.giphy.com/v1/gifs/random"

	// DefaultTimeout bounds a single fetch
	DefaultTimeout = 3 * time.Second

	defaultRating = "g"
)

// DefaultTags maps outcomes to search tags
var DefaultTags = map[string]string{
	"win":     "winner",
	"tie":     "tie game",
	"success": "success",
	"failure": "fail",
}

// ErrNilConfig is returned when the fetcher is built without a config
var ErrNilConfig = errors.New("config cannot be nil")

// Config holds configuration for the giphy fetcher
type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration

	// Tags overrides DefaultTags
	Tags map[string]string

	// Client is optional; tests inject one dialing an in-memory listener
	Client *fasthttp.Client
}

// Giphy queries a Giphy-style random endpoint
type Giphy struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	tags     map[string]string
	http     *fasthttp.Client
}

type randomResponse struct {
	Data struct {
		Images struct {
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"images"`
	} `json:"data"`
}

// NewGiphy creates an HTTP backed fetcher
func NewGiphy(cfg *Config) (*Giphy, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	g := &Giphy{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		timeout:  cfg.Timeout,
		tags:     cfg.Tags,
		http:     cfg.Client,
	}
	if g.endpoint == "" {
		g.endpoint = DefaultEndpoint
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.tags == nil {
		g.tags = DefaultTags
	}
	if g.http == nil {
		g.http = &fasthttp.Client{
			ReadTimeout:     g.timeout,
			WriteTimeout:    g.timeout,
			MaxConnsPerHost: 16,
		}
	}

	return g, nil
}

// Fetch asks the endpoint for one random GIF tagged for the outcome
func (g *Giphy) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	tag, ok := g.tags[input.Outcome]
	if !ok {
		return &FetchOutput{}, nil
	}

	query := url.Values{}
	query.Set("api_key", g.apiKey)
	query.Set("tag", tag)
	query.Set("rating", defaultRating)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(g.endpoint + "?" + query.Encode())

	if err := g.http.DoDeadline(req, resp, g.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("media request failed: %w", err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("media api error: status=%d", status)
	}

	var body randomResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}

	return &FetchOutput{URL: body.Data.Images.Original.URL}, nil
}

func (g *Giphy) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(g.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}
