// Package askdocs talks to the documentation assistant services: the
// question-answering endpoint, the summarization endpoint, and the
// embeddings index the assistant answers from.
package askdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/metric"
	"github.com/milodocs/pagekit/pkg/retry"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// ChatURL is the question-answering endpoint.
	ChatURL string

	// SummarizeURL is the summarization endpoint.
	SummarizeURL string

	// Timeout bounds each request attempt. Zero gets a default of 20s.
	Timeout time.Duration

	// Retry is the backoff schedule for transient faults. Zero value gets
	// retry.DefaultConfig.
	Retry retry.Config

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Metrics records request durations. Can be nil.
	Metrics *metric.Registry

	// Logger for request activity. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// Client is the HTTP client for the assistant services. Transient faults
// (network errors, 5xx) are retried per the configured schedule; malformed
// requests and responses are not.
type Client struct {
	chatURL      string
	summarizeURL string
	timeout      time.Duration
	retryCfg     retry.Config
	http         *http.Client
	metrics      *metric.Registry
	logger       *slog.Logger
}

// NewClient creates an assistant client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		chatURL:      opts.ChatURL,
		summarizeURL: opts.SummarizeURL,
		timeout:      opts.Timeout,
		retryCfg:     opts.Retry,
		http:         opts.HTTPClient,
		metrics:      opts.Metrics,
		logger:       opts.Logger.With("subsystem", "askdocs"),
	}
}

type answerResponse struct {
	Answer string `json:"answer"`
}

type summarizeRequest struct {
	Context string `json:"context"`
}

type summarizeResponse struct {
	Summarization string `json:"summarization"`
}

// Ask sends a question to the chat endpoint and returns the answer text.
// The question travels as the query parameter of a GET request; the response
// carries the answer in a JSON object. An empty answer is an error.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	if c.chatURL == "" {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "Client", "Ask", "chat endpoint")
	}
	if question == "" {
		return "", errors.WrapInvalid(fmt.Errorf("empty question"), "Client", "Ask", "request validation")
	}

	return retry.DoWithResult(ctx, c.retryCfg, func() (string, error) {
		reqURL := c.chatURL + "?query=" + url.QueryEscape(question)

		var out answerResponse
		if err := c.getJSON(ctx, "chat", reqURL, &out); err != nil {
			return "", err
		}
		if out.Answer == "" {
			// A well-formed but empty reply will not improve on retry.
			return "", retry.NonRetryable(
				errors.WrapInvalid(errors.ErrEmptyAnswer, "Client", "Ask", "response validation"))
		}
		return out.Answer, nil
	})
}

// Summarize posts page content to the summarization endpoint and returns the
// summary text.
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	if c.summarizeURL == "" {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "Client", "Summarize", "summarize endpoint")
	}

	body, err := json.Marshal(summarizeRequest{Context: content})
	if err != nil {
		return "", errors.WrapInvalid(err, "Client", "Summarize", "request encoding")
	}

	return retry.DoWithResult(ctx, c.retryCfg, func() (string, error) {
		var out summarizeResponse
		if err := c.postJSON(ctx, "summarize", c.summarizeURL, body, &out); err != nil {
			return "", err
		}
		return out.Summarization, nil
	})
}

func (c *Client) getJSON(ctx context.Context, service, reqURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.WrapInvalid(err, "Client", service, "request construction")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(service, req, out)
}

func (c *Client) postJSON(ctx context.Context, service, reqURL string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return errors.WrapInvalid(err, "Client", service, "request construction")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(service, req, out)
}

// do executes one attempt and classifies the outcome: network faults and
// 5xx responses are transient, 4xx responses are invalid.
func (c *Client) do(service string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(service, "error", start)
		return errors.WrapTransient(err, "Client", service, "request execution")
	}
	defer resp.Body.Close()

	c.record(service, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode >= 500 {
		return errors.WrapTransient(
			fmt.Errorf("%w: %s", errors.ErrBadStatus, resp.Status),
			"Client", service, "response status")
	}
	if resp.StatusCode >= 400 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrBadStatus, resp.Status),
			"Client", service, "response status")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.WrapTransient(err, "Client", service, "response read")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapInvalid(err, "Client", service, "response decoding")
	}
	return nil
}

func (c *Client) record(service, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.Core.RecordRemoteRequest(service, status, time.Since(start))
	}
}
