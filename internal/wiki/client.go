// Package wiki reads the release note page that lists which smart contract
// versions are deployed to each environment.
package wiki

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lendingops/internal/config"
	"lendingops/internal/telemetry"
	"lendingops/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const defaultSpaceKey = "TM"

var tracer = otel.Tracer("lendingops/internal/wiki")

var ErrPageNotFound = errors.New("page not found")

type Page struct {
	Id    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Version struct {
		When string `json:"when"`
		By   struct {
			DisplayName string `json:"displayName"`
		} `json:"by"`
	} `json:"version"`
}

// Storage is the page body in storage (XHTML) format.
func (p Page) Storage() string {
	return p.Body.Storage.Value
}

type searchResult struct {
	Results []Page `json:"results"`
}

type errorBody struct {
	Message string `json:"message"`
}

type Client struct {
	http *resty.Client
	cfg  config.WikiConfig
	tel  telemetry.API
}

type ClientOptions struct {
	Timeout    time.Duration
	VerifyTLS  bool
	DumpOutput restyutil.InstrumentOutput
}

func NewClient(cfg config.WikiConfig, opts ClientOptions, tel telemetry.API) Client {
	tel = telemetry.NewScopedAPI("wiki", tel)

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseUrl, "/"))
	client.SetBasicAuth(cfg.Username, cfg.ApiToken)
	client.SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if !opts.VerifyTLS {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	restyutil.InstrumentClient(client, tel, tracer, opts.DumpOutput)

	return Client{http: client, cfg: cfg, tel: tel}
}

func decode(res *resty.Response, out any) error {
	if res.StatusCode() != http.StatusOK {
		var body errorBody
		_ = json.Unmarshal(res.Body(), &body)
		if body.Message == "" {
			body.Message = "Unknown error"
		}
		return fmt.Errorf("%s: status %d: %s", res.Request.URL, res.StatusCode(), body.Message)
	}
	return json.Unmarshal(res.Body(), out)
}

func (c Client) PageById(ctx context.Context, id string) (Page, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("expand", "body.storage").
		Get("/rest/api/content/{id}")
	if err != nil {
		return Page{}, err
	}

	var page Page
	err = decode(res, &page)
	if err != nil {
		return Page{}, fmt.Errorf("retrieve page %s: %w", id, err)
	}
	return page, nil
}

func (c Client) PageByTitle(ctx context.Context, title, spaceKey string) (Page, error) {
	if spaceKey == "" {
		spaceKey = defaultSpaceKey
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"title":    title,
			"spaceKey": spaceKey,
			"expand":   "body.storage",
		}).
		Get("/rest/api/content")
	if err != nil {
		return Page{}, err
	}

	var result searchResult
	err = decode(res, &result)
	if err != nil {
		return Page{}, fmt.Errorf("search page %q: %w", title, err)
	}
	if len(result.Results) == 0 {
		return Page{}, fmt.Errorf("%w: title %q in space %s", ErrPageNotFound, title, spaceKey)
	}
	return result.Results[0], nil
}

// Fetch retrieves the configured page by id and falls back to searching by
// title when that fails.
func (c Client) Fetch(ctx context.Context) (Page, error) {
	var byIdErr error
	if c.cfg.PageId != "" {
		page, err := c.PageById(ctx, c.cfg.PageId)
		if err == nil {
			c.tel.ReportDebug("retrieved page", "id", page.Id, "title", page.Title, "updated", page.Version.When)
			return page, nil
		}
		byIdErr = err
		c.tel.ReportWarning("fetch.by-id", "id", c.cfg.PageId, "err", err)
	}

	if c.cfg.PageTitle == "" {
		if byIdErr != nil {
			return Page{}, byIdErr
		}
		return Page{}, &config.ConfigError{Key: "wiki.page_id", Reason: "neither page_id nor page_title is set"}
	}

	page, err := c.PageByTitle(ctx, c.cfg.PageTitle, c.cfg.SpaceKey)
	if err != nil {
		return Page{}, errors.Join(byIdErr, err)
	}
	c.tel.ReportDebug("retrieved page", "id", page.Id, "title", page.Title, "updated", page.Version.When)
	return page, nil
}
