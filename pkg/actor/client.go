package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"reelscraper/pkg/config"
	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/ratelimit"
)

const (
	// DefaultResultLimit is used when a request does not set one
	DefaultResultLimit = 1000

	invokeOp = "actor.invoke"

	// maxBodyMessage caps how much of a non-JSON error body ends up in
	// the error message
	maxBodyMessage = 200
)

// Request is a single batch invocation of the actor.
type Request struct {
	Identifiers []string
	ResultLimit int
}

type runInput struct {
	Username     []string `json:"username"`
	ResultsLimit int      `json:"resultsLimit"`
}

// Client calls the actor's synchronous run endpoint.
type Client struct {
	http    *resty.Client
	actorID string
	limit   int
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewClient builds a client from cfg. A nil limiter disables throttling.
func NewClient(cfg config.ActorConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	limit := cfg.ResultLimit
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "reelscraper/"+logger.Version)
	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:    httpClient,
		actorID: cfg.ActorID,
		limit:   limit,
		limiter: limiter,
		logger:  log.WithField("component", "actor"),
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("/v2/acts/%s/run-sync-get-dataset-items", url.PathEscape(c.actorID))
}

// Invoke runs the actor once and blocks until its dataset is returned.
// It does not retry; every failure is a single *errs.Error with Op
// "actor.invoke".
func (c *Client) Invoke(ctx context.Context, req Request) ([]RawItem, error) {
	if len(req.Identifiers) == 0 {
		return nil, errs.New(invokeOp, errs.ErrorTypeConfig, "no identifiers given")
	}

	limit := req.ResultLimit
	if limit <= 0 {
		limit = c.limit
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.transportError(err)
	}

	start := time.Now()
	items, err := c.invoke(ctx, req.Identifiers, limit)
	logger.LogActorCall(c.logger, req.Identifiers, len(items), time.Since(start), err)
	return items, err
}

func (c *Client) invoke(ctx context.Context, identifiers []string, limit int) ([]RawItem, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(runInput{Username: identifiers, ResultsLimit: limit}).
		Post(c.endpoint())
	if err != nil {
		return nil, c.transportError(err)
	}

	if !resp.IsSuccess() {
		return nil, statusError(resp.StatusCode(), resp.Body())
	}

	var items []RawItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Op:      invokeOp,
			Message: "failed to decode dataset items",
			Code:    resp.StatusCode(),
			Err:     err,
		}
	}
	return items, nil
}

func (c *Client) transportError(err error) error {
	t := errs.ErrorTypeNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		t = errs.ErrorTypeTimeout
	}
	return &errs.Error{Type: t, Op: invokeOp, Message: err.Error(), Err: err}
}

func statusError(code int, body []byte) error {
	t := errs.ErrorTypeUnknown
	switch {
	case code == 401 || code == 403:
		t = errs.ErrorTypeAuth
	case code == 404:
		t = errs.ErrorTypeNotFound
	case code == 408:
		t = errs.ErrorTypeTimeout
	case code == 429:
		t = errs.ErrorTypeRateLimit
	case code >= 500:
		t = errs.ErrorTypeServerError
	}
	return &errs.Error{
		Type:    t,
		Op:      invokeOp,
		Message: errorMessage(code, body),
		Code:    code,
	}
}

// errorMessage pulls error.message out of an actor error body
func errorMessage(code int, body []byte) string {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBodyMessage {
		n := maxBodyMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n] + "..."
	}
	if msg == "" {
		msg = fmt.Sprintf("actor returned status %d", code)
	}
	return msg
}
