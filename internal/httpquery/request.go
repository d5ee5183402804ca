// File: backend/internal/httpquery/request.go
package httpquery

import (
	"crypto/tls"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"golang.org/x/net/html/charset"
)

const (
	acceptHeader       = "application/rdap+json, application/json"
	maxBodyBytes       = 10 << 20
	defaultMaxRetries  = 3
	defaultRetryAfter  = 10 * time.Second
	maxRetryAfterDelay = 120 * time.Second
)

// QueryResponse is the uniform outcome of one logical query. A transport
// failure yields StatusCode 0 and a non-Success Status; the executor never
// returns an error to its caller.
type QueryResponse struct {
	TrackingID string
	StatusCode int
	Body       string
	URI        *url.URL
	Headers    http.Header
	Status     rdap.ConnectionStatus
}

// Executor performs single RDAP queries over a forced address family,
// dialing the resolved IP directly so the family choice cannot be undone by
// the transport's own resolution.
type Executor struct {
	cache *ClientCache

	mu         sync.Mutex
	tlsConfigs map[string]*tls.Config

	sleep              func(time.Duration)
	retryAfterFallback time.Duration
	maxRetries         int
}

func NewExecutor(cache *ClientCache) *Executor {
	return &Executor{
		cache:              cache,
		tlsConfigs:         make(map[string]*tls.Config),
		sleep:              time.Sleep,
		retryAfterFallback: defaultRetryAfter,
		maxRetries:         defaultMaxRetries,
	}
}

// tlsConfigFor returns the one TLS configuration used for a host so the
// client cache sees a stable identity across queries.
func (e *Executor) tlsConfigFor(host string) *tls.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg, ok := e.tlsConfigs[host]; ok {
		return cfg
	}
	cfg := NewLeafCertConfig(host)
	e.tlsConfigs[host] = cfg
	return cfg
}

// Do executes one query and records its connection. When recordError is set,
// transport failures also produce a numbered result with the no-response
// sentinel as the value. Responses with 429 are retried a bounded number of
// times, honoring Retry-After.
func (e *Executor) Do(qctx *rdap.QueryContext, uri *url.URL, timeoutSeconds int, method string, isMain bool, recordError bool) *QueryResponse {
	if uri == nil {
		if recordError {
			qctx.AddError(rdap.CodeConnectionFailed, rdap.NoResponse, "Failed to connect to server.")
		}
		return &QueryResponse{Status: rdap.ConnectionFailed}
	}

	host := uri.Hostname()
	protocol := qctx.Protocol()

	ip, err := qctx.Resolver.Resolve(host, protocol)
	if err != nil {
		// Pre-network outcome: the record carries it, the endpoint address
		// checks own the numbered results for missing addresses.
		id := qctx.Tracker.StartTracking(uri, "", protocol, method, isMain)
		qctx.Tracker.CompleteTracking(id, 0, rdap.UnknownHost)
		log.Printf("HTTPQuery: No %s address for %s", protocol, host)
		return &QueryResponse{TrackingID: id, URI: uri, Status: rdap.UnknownHost}
	}

	for attempt := 0; ; attempt++ {
		resp := e.attempt(qctx, uri, ip, timeoutSeconds, method, isMain, recordError)
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp
		}
		if attempt >= e.maxRetries {
			resp.Status = rdap.TooManyRequests
			qctx.Tracker.OverrideStatus(resp.TrackingID, rdap.TooManyRequests)
			log.Printf("HTTPQuery: Giving up on %s after %d rate-limited attempts", uri, attempt+1)
			return resp
		}
		qctx.Tracker.OverrideStatus(resp.TrackingID, rdap.TooManyRequests)
		delay := retryAfterDelay(resp.Headers, e.retryAfterFallback)
		log.Printf("HTTPQuery: Rate limited by %s, retrying in %s", uri.Hostname(), delay)
		e.sleep(delay)
	}
}

// attempt performs one physical request against the resolved address.
func (e *Executor) attempt(qctx *rdap.QueryContext, uri *url.URL, ip net.IP, timeoutSeconds int, method string, isMain bool, recordError bool) *QueryResponse {
	host := uri.Hostname()
	protocol := qctx.Protocol()

	var bind net.Addr
	if addr := qctx.Config.LocalBindAddress; addr != "" {
		if bindIP := net.ParseIP(addr); bindIP != nil {
			bind = &net.TCPAddr{IP: bindIP}
		}
	}
	route := PlanRoute(host, uri.Scheme, uri.Port(), bind)

	tlsConfig := e.tlsConfigFor(host)

	id := qctx.Tracker.StartTracking(uri, ip.String(), protocol, method, isMain)

	fail := func(err error) *QueryResponse {
		status := Classify(err)
		qctx.Tracker.CompleteTracking(id, 0, status)
		log.Printf("HTTPQuery: %s %s failed: %v (%s)", method, uri, err, status)
		if recordError {
			if code, msg, ok := StatusResult(status); ok {
				qctx.AddError(code, rdap.NoResponse, msg)
			}
		}
		return &QueryResponse{TrackingID: id, URI: uri, Status: status}
	}

	client, err := e.cache.GetClient(host, tlsConfig, route.Bind, timeoutSeconds)
	if err != nil {
		return fail(err)
	}

	// Dial the resolved address directly; the Host header and SNI carry the
	// original name.
	ipURL := *uri
	ipURL.Host = net.JoinHostPort(ip.String(), strconv.Itoa(route.Port))

	req, err := http.NewRequest(method, ipURL.String(), nil)
	if err != nil {
		return fail(err)
	}
	req.Host = uri.Host
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		qctx.Tracker.CompleteTracking(id, resp.StatusCode, rdap.NetworkReceiveFail)
		log.Printf("HTTPQuery: Failed reading body from %s: %v", uri, err)
		if recordError {
			qctx.AddError(rdap.CodeNetworkReceiveFail, rdap.NoResponse, "Network receive fail")
		}
		return &QueryResponse{TrackingID: id, StatusCode: resp.StatusCode, URI: uri, Headers: resp.Header, Status: rdap.NetworkReceiveFail}
	}

	qctx.Tracker.CompleteTracking(id, resp.StatusCode, rdap.Success)
	return &QueryResponse{
		TrackingID: id,
		StatusCode: resp.StatusCode,
		Body:       body,
		URI:        uri,
		Headers:    resp.Header,
		Status:     rdap.Success,
	}
}

// decodeBody reads the response body honoring its declared character set.
func decodeBody(resp *http.Response) (string, error) {
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// retryAfterDelay parses a Retry-After header as delay seconds or an HTTP
// date, clamped to a sane ceiling, falling back when absent or unparseable.
func retryAfterDelay(headers http.Header, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(headers.Get("Retry-After"))
	if value == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return clampDelay(time.Duration(seconds) * time.Second)
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return clampDelay(d)
		}
		return 0
	}
	return fallback
}

func clampDelay(d time.Duration) time.Duration {
	if d > maxRetryAfterDelay {
		return maxRetryAfterDelay
	}
	return d
}
