package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trivia-game-service/internal/catalog"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the root of the public Open Trivia DB API.
const DefaultBaseURL = "https://opentdb.com/"

const maxBodyBytes = 4 << 20

// Client calls the Open Trivia DB. Every call carries its own parameters and
// returns its own result, so concurrent calls do not interfere.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *logrus.Entry
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse trivia api url: %w", err)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "opentdb")
	return c, nil
}

// FetchSessionToken requests a new session token.
func (c *Client) FetchSessionToken(ctx context.Context) (string, error) {
	env, err := c.get(ctx, domain.EndpointToken, url.Values{"command": {"request"}})
	if err != nil {
		return "", err
	}
	return tokenOf(env)
}

// ResetSessionToken resets token so that its questions can be served again.
// The API answers with the same token; a reply that reads as a freshly
// issued token is returned as well, and logged.
func (c *Client) ResetSessionToken(ctx context.Context, token string) (string, error) {
	env, err := c.get(ctx, domain.EndpointToken, url.Values{"command": {"reset"}, "token": {token}})
	if err != nil {
		return "", err
	}
	reset, err := tokenOf(env)
	if err != nil {
		return "", err
	}
	if env.FreshToken() || reset != token {
		c.log.WithField("endpoint", domain.EndpointToken).Warn("token reset answered with a new token")
	}
	return reset, nil
}

// FetchQuestions returns the raw results of one question request. Text is
// requested in RFC 3986 encoding.
func (c *Client) FetchQuestions(ctx context.Context, q domain.QuestionQuery) ([]json.RawMessage, error) {
	env, err := c.get(ctx, domain.EndpointQuestions, QuestionParams(q))
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// FetchCategories returns the raw trivia_categories array.
func (c *Client) FetchCategories(ctx context.Context) (json.RawMessage, error) {
	env, err := c.get(ctx, domain.EndpointCategories, nil)
	if err != nil {
		return nil, err
	}
	if env.TriviaCategories == nil {
		return nil, &domain.UpstreamError{Endpoint: domain.EndpointCategories, Code: domain.CodeTransport, Message: "response has no categories"}
	}
	return env.TriviaCategories, nil
}

// FetchQuestionCount returns the raw count payload, global when categoryID
// is nil or -1.
func (c *Client) FetchQuestionCount(ctx context.Context, categoryID *int) (json.RawMessage, error) {
	endpoint := domain.EndpointGlobalCount
	var params url.Values
	if categoryID != nil && *categoryID != -1 {
		endpoint = domain.EndpointCategoryCount
		params = url.Values{"category": {strconv.Itoa(*categoryID)}}
	}
	body, _, err := c.do(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// QuestionParams encodes a question query as api.php parameters.
func QuestionParams(q domain.QuestionQuery) url.Values {
	amount := q.Amount
	if amount > domain.MaxQuestionsPerRequest {
		amount = domain.MaxQuestionsPerRequest
	}
	params := url.Values{
		"amount": {strconv.Itoa(amount)},
		"encode": {"url3986"},
	}
	if q.Token != "" {
		params.Set("token", q.Token)
	}
	if v := q.Difficulty.APIValue(); v != "" {
		params.Set("difficulty", v)
	}
	if q.CategoryID != nil && *q.CategoryID > 0 {
		params.Set("category", strconv.Itoa(*q.CategoryID))
	}
	if v := q.Type.APIValue(); v != "" {
		params.Set("type", v)
	}
	return params
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (catalog.Envelope, error) {
	_, env, err := c.do(ctx, endpoint, params)
	return env, err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, catalog.Envelope, error) {
	u := c.baseURL.JoinPath(endpoint)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, catalog.Envelope{}, c.fail(endpoint, &domain.UpstreamError{Endpoint: endpoint, Code: domain.CodeTransport, Message: "could not build request", Err: err})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, catalog.Envelope{}, c.fail(endpoint, &domain.UpstreamError{Endpoint: endpoint, Code: domain.CodeTransport, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, catalog.Envelope{}, c.fail(endpoint, &domain.UpstreamError{Endpoint: endpoint, Code: domain.CodeTransport, Message: "could not read response", Err: err})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, catalog.Envelope{}, c.fail(endpoint, &domain.UpstreamError{Endpoint: endpoint, Code: domain.CodeTransport, Message: "unexpected status " + resp.Status})
	}

	env, err := catalog.DecodeEnvelope(endpoint, body)
	if err != nil {
		return nil, env, c.fail(endpoint, err)
	}
	c.metrics.ObserveUpstream(endpoint, "ok")
	c.log.WithField("endpoint", endpoint).Debug("trivia api request resolved")
	return body, env, nil
}

func (c *Client) fail(endpoint string, err error) error {
	fields := logrus.Fields{"endpoint": endpoint, "error": err.Error()}
	outcome := "transport_error"
	if upstream, ok := err.(*domain.UpstreamError); ok && upstream.Code > 0 {
		fields["code"] = upstream.Code
		outcome = "code_" + strconv.Itoa(upstream.Code)
	}
	c.metrics.ObserveUpstream(endpoint, outcome)
	c.log.WithFields(fields).Warn("trivia api request failed")
	return err
}

func tokenOf(env catalog.Envelope) (string, error) {
	if env.Token == nil || *env.Token == "" {
		return "", &domain.UpstreamError{Endpoint: domain.EndpointToken, Code: domain.CodeTransport, Message: "response has no token"}
	}
	return *env.Token, nil
}
