package searx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/sift/internal/blockpage"
	"github.com/FranksOps/sift/internal/metrics"
	"github.com/FranksOps/sift/pkg/httpclient"
	"github.com/FranksOps/sift/pkg/useragent"
)

// emptyRetryBudget is how many times a page may come back with an empty
// result list before the instance is considered exhausted.
const emptyRetryBudget = 3

// Options configures a Client. The zero value works: a pooled HTTP client
// with a 30s per-request timeout and the sift identity User-Agent.
type Options struct {
	// HTTPClient is the shared transport handle. Construct it once at
	// process start and hand it to every Client so unrelated search
	// operations reuse the same connection pool. When nil, the Client
	// builds its own from Timeout and Transport.
	HTTPClient *httpclient.Client

	// Timeout for each individual page request when HTTPClient is nil.
	Timeout time.Duration

	// Transport for the internally built client when HTTPClient is nil,
	// e.g. one from internal/transport with a browser TLS profile.
	Transport http.RoundTripper

	// UserAgents supplies the identifying header, one value per request.
	// Defaults to the sift identity.
	UserAgents *useragent.Pool
}

// Client is the entry point for querying one instance. It holds the
// normalized search endpoint and the shared HTTP handle; per-operation
// state lives in the Builder, so a single Client is safe for concurrent
// use by independent searches.
type Client struct {
	searchURL string
	host      string // metrics label
	format    ResponseFormat
	http      *httpclient.Client
	uas       *useragent.Pool
}

// New creates a Client for the instance at baseURL. Trailing slashes on
// baseURL are ignored; the search endpoint is always <baseURL>/search.
func New(baseURL string, format ResponseFormat, opts Options) (*Client, error) {
	trimmed := strings.TrimRight(baseURL, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc, err = httpclient.New(httpclient.Config{
			Timeout:      opts.Timeout,
			MaxRedirects: 3,
			Transport:    opts.Transport,
		})
		if err != nil {
			return nil, fmt.Errorf("build http client: %w", err)
		}
	}

	uas := opts.UserAgents
	if uas == nil {
		uas = useragent.NewPool(nil)
	}

	return &Client{
		searchURL: trimmed + "/search",
		host:      parsed.Host,
		format:    format,
		http:      hc,
		uas:       uas,
	}, nil
}

// Search starts a new search for query and returns a Builder to configure
// and execute it.
func (c *Client) Search(query string) *Builder {
	return &Builder{
		client: c,
		params: NewParams(query, c.format),
		stats: OperationStats{
			UnresponsiveEngines: make(map[string]int),
			BlockPages:          make(map[string]int),
		},
	}
}

// OperationStats aggregates the diagnostics an operation accumulates
// across its pages. Instances report partial failures inline rather than
// via the status code, so this is the only place they surface.
type OperationStats struct {
	// UnresponsiveEngines counts, per upstream engine, how many page
	// responses reported it as failing.
	UnresponsiveEngines map[string]int
	// BlockPages counts failed responses recognized as block or
	// rate-limit pages, keyed by source.
	BlockPages map[string]int
}

// Builder accumulates the parameters of one search operation. It is owned
// by a single operation and must not be shared across goroutines; the
// pagination engine rewrites its page number between requests.
type Builder struct {
	client *Client
	params Params
	stats  OperationStats
}

// Stats returns the diagnostics accumulated so far: engines the pages
// reported unresponsive and block pages encountered along the way. The
// maps keep filling while the operation runs.
func (b *Builder) Stats() OperationStats {
	return b.stats
}

// Page sets or overwrites the page number. The value is passed through
// unvalidated; the instance is authoritative about what pages exist.
func (b *Builder) Page(n int) *Builder {
	b.params.PageNo = &n
	return b
}

// Params replaces the parameter set wholesale, for callers that want full
// control over categories, engines, and display options.
func (b *Builder) Params(p Params) *Builder {
	b.params = p
	return b
}

// Send executes one page request and decodes the response.
//
// Errors are either a *TransportError (network failure or a non-2xx
// status, with block-page classification when recognized) or a
// *DecodeError (a payload structurally incompatible with the known
// response shapes).
func (b *Builder) Send(ctx context.Context) (*SearchResponse, error) {
	c := b.client
	header := http.Header{}
	header.Set("User-Agent", c.uas.GetSequential())

	start := time.Now()
	resp, err := c.http.PostForm(ctx, c.searchURL, b.params.Values(), header)
	if err != nil {
		metrics.RecordSearch(c.host, "error", time.Since(start), 0)
		return nil, &TransportError{URL: c.searchURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordSearch(c.host, "error", time.Since(start), 0)
		return nil, &TransportError{URL: c.searchURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordSearch(c.host, strconv.Itoa(resp.StatusCode), time.Since(start), 0)
		source := blockpage.Classify(resp.StatusCode, resp.Header, body)
		if source != "" {
			metrics.BlockPagesTotal.WithLabelValues(c.host, source).Inc()
			b.stats.BlockPages[source]++
		}
		return nil, &TransportError{
			URL:        c.searchURL,
			StatusCode: resp.StatusCode,
			Source:     source,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	decoded, err := DecodeResponse(body)
	if err != nil {
		kind := "payload"
		if IsSchemaMismatch(err) {
			kind = "schema_mismatch"
		}
		metrics.DecodeFailuresTotal.WithLabelValues(c.host, kind).Inc()
		metrics.RecordSearch(c.host, strconv.Itoa(resp.StatusCode), time.Since(start), 0)
		return nil, err
	}

	for _, ee := range decoded.UnresponsiveEngines {
		b.stats.UnresponsiveEngines[ee.Engine]++
	}

	metrics.RecordSearch(c.host, strconv.Itoa(resp.StatusCode), time.Since(start), len(decoded.Results))
	return decoded, nil
}

// sendEmptyCheckRetry sends the current page until it yields a non-empty
// result list. Empty responses consume one of three attempts; transport
// failures are retried without consuming the budget and without limit, so
// only the caller's context stops a persistently failing transport. The
// second return value is false when the budget ran out on empty pages,
// which signals exhaustion rather than an error.
func (b *Builder) sendEmptyCheckRetry(ctx context.Context) ([]SearchResult, bool, error) {
	host := b.client.host
	for attempts := 0; attempts < emptyRetryBudget; {
		resp, err := b.Send(ctx)
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				// Structural incompatibility, retrying cannot help.
				return nil, false, err
			}
			if ctx.Err() != nil {
				return nil, false, err
			}
			metrics.TransportRetriesTotal.WithLabelValues(host).Inc()
			continue
		}
		if len(resp.Results) > 0 {
			return resp.Results, true, nil
		}
		metrics.EmptyPagesTotal.WithLabelValues(host).Inc()
		attempts++
	}
	return nil, false, nil
}

// SendGetNum pages through the instance until at least num results have
// accumulated, then returns exactly the first num. Pages are requested
// strictly sequentially starting at 1; each page's internal order is
// preserved and pages are concatenated in request order.
//
// The returned slice is shorter than num only when the instance is
// exhausted: three consecutive empty responses for some page end the
// operation normally with whatever accumulated, and no error.
//
// Transport failures are retried forever (see sendEmptyCheckRetry), so
// callers should bound the whole operation with a context deadline. On a
// fatal error, results decoded from earlier pages are returned alongside
// it.
func (b *Builder) SendGetNum(ctx context.Context, num int) ([]SearchResult, error) {
	ret := make([]SearchResult, 0, num)
	for pageno := 1; len(ret) < num; pageno++ {
		b.Page(pageno)
		results, ok, err := b.sendEmptyCheckRetry(ctx)
		if err != nil {
			return ret, err
		}
		if !ok {
			break // instance has no more results
		}
		ret = append(ret, results...)
	}
	if len(ret) > num {
		ret = ret[:num]
	}
	return ret, nil
}
