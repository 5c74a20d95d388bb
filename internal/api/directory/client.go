package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 5 * time.Second

	serviceTokenHeader = "X-Service-Token"
)

// errNoData marks a 404 or an envelope without result.data
var errNoData = errors.New("no data in response")

// Config configures a directory client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string
}

type envelope[T any] struct {
	Result struct {
		Data *T `json:"data"`
	} `json:"result"`
}

// trpcClient issues tRPC-style GET queries: /trpc/<procedure>?input=<json>
type trpcClient struct {
	http    *resty.Client
	timeout time.Duration
	logger  *slog.Logger
}

func newTRPCClient(config Config, logger *slog.Logger) *trpcClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if config.ServiceToken != "" {
		httpClient.SetHeader(serviceTokenHeader, config.ServiceToken)
	}

	return &trpcClient{
		http:    httpClient,
		timeout: timeout,
		logger:  logger,
	}
}

// query calls the procedure and decodes result.data into T. A 404 or an empty
// envelope returns errNoData; every other failure is a plain error.
func query[T any](ctx context.Context, c *trpcClient, procedure string, input interface{}) (*T, error) {
	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s input: %w", procedure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body envelope[T]
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("input", string(rawInput)).
		SetResult(&body).
		Get("/trpc/" + procedure)
	if err != nil {
		c.logger.Error("Directory request failed",
			slog.String("procedure", procedure),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to call %s: %w", procedure, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, errNoData
	}
	if resp.IsError() {
		c.logger.Error("Directory returned an error status",
			slog.String("procedure", procedure),
			slog.Int("status", resp.StatusCode()),
		)
		return nil, fmt.Errorf("%s returned status %d", procedure, resp.StatusCode())
	}
	if body.Result.Data == nil {
		return nil, errNoData
	}

	return body.Result.Data, nil
}
