package lendingapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"lendingops/internal/errlog"
	"lendingops/internal/telemetry"
	"lendingops/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const report_executor_execute = "executor.execute"

var tracer = otel.Tracer("lendingops/internal/lendingapi")

// Request is a single outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is encoded as JSON, nil means no body.
	Body any
}

// Executor issues a request and always returns a Response, transport
// failures are folded into a NETWORK_ERROR response.
//
// note: fault injection point
type Executor interface {
	Execute(ctx context.Context, req Request) Response
}

type ClientOptions struct {
	// Timeout bounds a single request, zero means one minute.
	Timeout time.Duration
	// VerifyTLS turns certificate verification on. The lending endpoints
	// used by these flows are non-production and serve self-signed certs,
	// so it defaults to off.
	VerifyTLS bool
	// DumpOutput receives a full dump of every exchange, it can be nil.
	DumpOutput restyutil.InstrumentOutput
}

// Client is the resty backed Executor.
type Client struct {
	http *resty.Client
	tel  telemetry.API
	errs errlog.Sink
}

func NewClient(opts ClientOptions, tel telemetry.API, errs errlog.Sink) *Client {
	tel = telemetry.NewScopedAPI("lendingapi", tel)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	if !opts.VerifyTLS {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	restyutil.InstrumentClient(httpClient, tel, tracer, opts.DumpOutput)

	return &Client{http: httpClient, tel: tel, errs: errs}
}

func (c *Client) networkError(req Request, err error) Response {
	c.tel.ReportBroken(report_executor_execute, "method", req.Method, "url", req.URL, "err", err)

	logErr := c.errs.Append(errlog.Entry{
		Kind:    errlog.KindNetwork,
		Message: err.Error(),
	})
	if logErr != nil {
		c.tel.ReportWarning("errlog.append", "err", logErr)
	}
	return networkErrorResponse(err)
}

func (c *Client) Execute(ctx context.Context, req Request) Response {
	r := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}

	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return c.networkError(req, fmt.Errorf("json marshal: %w", err))
		}
		r.SetBody(body)
	}

	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return c.networkError(req, err)
	}

	out := NewResponse(res.StatusCode(), res.Body())
	c.tel.ReportDebug(
		"response",
		"url", req.URL,
		"status", out.StatusCode,
		"body", string(out.Raw),
	)
	return out
}
