package httpclient

import (
	"context"
	"golang-autotrade/pkg/logger"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

type RestyClient struct {
	client  *resty.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type Option func(*RestyClient)

// WithLimiter throttles every request through the given limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(rc *RestyClient) {
		rc.limiter = limiter
	}
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(rc *RestyClient) {
		rc.client.SetHeaders(headers)
	}
}

func New(log *logger.Logger, baseURL string, timeout time.Duration, bearerToken string, opts ...Option) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if bearerToken != "" {
		client.SetAuthToken(bearerToken)
	}

	rc := &RestyClient{client: client, log: log}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *RestyClient) wait(ctx context.Context) error {
	if rc.limiter == nil {
		return nil
	}
	return rc.limiter.Wait(ctx)
}

func toBaseResponse(resp *resty.Response) *BaseResponse {
	if resp == nil {
		return &BaseResponse{}
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().SetContext(ctx).SetResult(result)

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	if err != nil {
		rc.log.DebugContext(ctx, "GET request failed", logger.StringField("endpoint", endpoint), logger.ErrorField(err))
	}
	return toBaseResponse(resp), err
}

// POST request with body
func (rc *RestyClient) Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error) {
	if err := rc.wait(ctx); err != nil {
		return &BaseResponse{}, err
	}
	req := rc.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result)

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Post(endpoint)
	if err != nil {
		rc.log.DebugContext(ctx, "POST request failed", logger.StringField("endpoint", endpoint), logger.ErrorField(err))
	}
	return toBaseResponse(resp), err
}
