// File: backend/internal/rdapquery/query.go
package rdapquery

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
	"github.com/fntelecomllc/rdapflow/backend/internal/dnsresolver"
	"github.com/fntelecomllc/rdapflow/backend/internal/httpquery"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"golang.org/x/time/rate"
)

const (
	rdapMediaType = "application/rdap+json"

	// Query types.
	TypeLookup           = "lookup"
	TypeNameserverSearch = "nameserver-search"
)

// Validator drives a full validation run: endpoint address checks, the rate
// limited query with redirect following, and the response checks that turn
// what came back into numbered results.
type Validator struct {
	exec    *httpquery.Executor
	limiter *rate.Limiter
}

func New(exec *httpquery.Executor, cfg *config.RDAPValidatorConfig) *Validator {
	qps := cfg.RateLimitQPS
	if qps <= 0 {
		qps = config.DefaultRateLimitQPS
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = config.DefaultRateLimitBurst
	}
	return &Validator{
		exec:    exec,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
	}
}

// DetectQueryType classifies the target URI by its final path segment: a
// nameserver search ends in /nameservers and carries its subject in the query
// string, everything else is a lookup.
func DetectQueryType(uri *url.URL) string {
	path := strings.TrimSuffix(uri.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	if strings.EqualFold(path, "nameservers") {
		return TypeNameserverSearch
	}
	return TypeLookup
}

// Run executes the validation and reports whether the query itself succeeded.
// A valid 404 answer counts as a successful query; every finding lands in the
// context's result sink either way.
func (v *Validator) Run(ctx context.Context, qctx *rdap.QueryContext) bool {
	cfg := qctx.Config

	target, err := url.Parse(cfg.TargetURI)
	if err != nil || target.Hostname() == "" {
		log.Printf("RDAPQuery: Invalid target URI %q: %v", cfg.TargetURI, err)
		qctx.AddError(rdap.CodeNoAddresses, rdap.NoResponse,
			"Unable to resolve an IP address endpoint using DNS.")
		return false
	}

	if !dnsresolver.ValidateEndpointAddresses(qctx, cfg.TargetURI) {
		return false
	}

	if err := v.limiter.Wait(ctx); err != nil {
		log.Printf("RDAPQuery: Rate limiter wait aborted: %v", err)
		return false
	}

	resp := v.exec.FollowRedirects(qctx, target, cfg.TimeoutSeconds, cfg.MaxRedirects)

	ok := v.validate(qctx, resp)

	v.checkAllNotFound(qctx)
	return ok
}

// validate applies the response checks in order: connection outcome first,
// then the error-body contract, the status code itself, and finally the
// content checks that only make sense on a body worth reading.
func (v *Validator) validate(qctx *rdap.QueryContext, resp *httpquery.QueryResponse) bool {
	cfg := qctx.Config

	if resp.Status != rdap.Success {
		// Transport faults already produced their result; policy-bound
		// outcomes carry theirs on the connection record alone.
		return false
	}

	statusCode := resp.StatusCode

	if cfg.UseRdapProfileFeb2024 && statusCode != http.StatusOK {
		v.checkErrorBody(qctx, resp)
	}

	querySuccessful := true

	if statusCode != http.StatusOK && statusCode != http.StatusNotFound {
		qctx.AddErrorWithStatus(statusCode, rdap.CodeInvalidHTTPStatus,
			strconv.Itoa(statusCode), "The HTTP status code was neither 200 nor 404.")
		querySuccessful = false
	}

	// Client errors carry no content worth checking further.
	if statusCode >= 400 && statusCode < 500 {
		return statusCode == http.StatusNotFound && querySuccessful
	}

	if !hasRDAPContentType(resp.Headers) {
		value := resp.Headers.Get("Content-Type")
		if value == "" {
			value = "missing"
		}
		qctx.AddErrorWithStatus(statusCode, rdap.CodeContentType, value,
			"The content-type header does not contain the application/rdap+json media type.")
	}

	body := parseJSONObject(resp.Body)
	if body == nil {
		qctx.AddErrorWithStatus(statusCode, rdap.CodeInvalidJSON,
			"response body not given", "The response was not valid JSON.")
		return false
	}

	if statusCode == http.StatusOK {
		v.checkQueryType(qctx, resp, body)
	}

	return querySuccessful
}

// checkErrorBody enforces the error-response contract on non-200 answers:
// the body must be a JSON object carrying both errorCode and rdapConformance,
// and the errorCode must echo the HTTP status. The two findings are mutually
// exclusive.
func (v *Validator) checkErrorBody(qctx *rdap.QueryContext, resp *httpquery.QueryResponse) {
	required := func() {
		qctx.AddErrorWithStatus(resp.StatusCode, rdap.CodeErrorCodeRequired,
			resp.Body, "The errorCode value is required in an error response.")
	}

	body := parseJSONObject(resp.Body)
	if body == nil {
		required()
		return
	}
	errorCode, hasErrorCode := body["errorCode"]
	_, hasConformance := body["rdapConformance"]
	if !hasErrorCode || !hasConformance {
		required()
		return
	}

	num, isNumber := errorCode.(float64)
	if !isNumber {
		// A non-numeric errorCode is a structural fault, not a mismatch.
		required()
		return
	}
	if int(num) != resp.StatusCode {
		qctx.AddErrorWithStatus(resp.StatusCode, rdap.CodeErrorCodeMismatch,
			resp.Body, "The errorCode value does not match the HTTP status code.")
	}
}

// checkQueryType verifies the 200 answer has the shape its query type
// demands.
func (v *Validator) checkQueryType(qctx *rdap.QueryContext, resp *httpquery.QueryResponse, body map[string]interface{}) {
	cfg := qctx.Config

	queryType := cfg.QueryType
	if queryType == "" {
		queryType = DetectQueryType(resp.URI)
	}

	switch queryType {
	case TypeNameserverSearch:
		if _, ok := body["nameserverSearchResults"].([]interface{}); !ok {
			log.Printf("RDAPQuery: No nameserverSearchResults array in answer")
			if cfg.UseRdapProfileFeb2024 {
				qctx.AddErrorWithStatus(resp.StatusCode, rdap.CodeNameserverSearchReqd,
					resp.Body, "The nameserverSearchResults structure is required.")
			} else {
				qctx.AddErrorWithStatus(resp.StatusCode, rdap.CodeMissingObjectClass,
					resp.Body, "The response does not have an objectClassName string.")
			}
		}
	default:
		if _, ok := body["objectClassName"].(string); !ok {
			log.Printf("RDAPQuery: objectClassName was not found in the topmost object")
			qctx.AddErrorWithStatus(resp.StatusCode, rdap.CodeMissingObjectClass,
				resp.Body, "The response does not have an objectClassName string.")
		}
	}
}

// checkAllNotFound raises the warning for a run whose every primary query
// came back as a validly formed 404.
func (v *Validator) checkAllNotFound(qctx *rdap.QueryContext) {
	if !qctx.Tracker.AllNotFound() {
		return
	}
	qctx.AddErrorWithStatus(http.StatusNotFound, rdap.CodeNotFoundWarning,
		qctx.Config.TargetURI,
		"This URL returned an HTTP 404 status code that was validly formed. If the provided URL "+
			"does not reference a registered resource, then this warning may be ignored. If the provided URL "+
			"does reference a registered resource, then this should be considered an error.")
}

// hasRDAPContentType reports whether any Content-Type segment names the RDAP
// media type, ignoring case and parameters.
func hasRDAPContentType(headers http.Header) bool {
	for _, value := range headers.Values("Content-Type") {
		for _, segment := range strings.Split(value, ";") {
			if strings.EqualFold(strings.TrimSpace(segment), rdapMediaType) {
				return true
			}
		}
	}
	return false
}

// parseJSONObject returns the body as a JSON object, or nil when the body is
// blank, invalid, or not an object.
func parseJSONObject(body string) map[string]interface{} {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil
	}
	return parsed
}
