// File: backend/internal/httpquery/redirect.go
package httpquery

import (
	"log"
	"net/http"
	"net/url"

	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
)

func isRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// FollowRedirects runs the main query and walks its redirect chain within the
// original host, one query per hop. The walk stops at a non-redirect answer,
// at a redirect that leaves the host, at one that echoes the request's query
// parameters back, or once maxRedirects hops have been followed.
func (e *Executor) FollowRedirects(qctx *rdap.QueryContext, uri *url.URL, timeoutSeconds int, maxRedirects int) *QueryResponse {
	resp := e.Do(qctx, uri, timeoutSeconds, http.MethodGet, true, true)

	originalHost := uri.Hostname()
	originalQuery := uri.RawQuery
	parentID := resp.TrackingID

	for hops := 0; isRedirect(resp.StatusCode); hops++ {
		location := resp.Headers.Get("Location")
		if location == "" {
			return resp
		}

		next, err := resp.URI.Parse(location)
		if err != nil {
			log.Printf("HTTPQuery: Unparseable Location %q from %s", location, resp.URI)
			return resp
		}

		if next.Hostname() != originalHost {
			log.Printf("HTTPQuery: Redirect leaves %s for %s, not following", originalHost, next.Hostname())
			return resp
		}

		if originalQuery != "" && next.RawQuery == originalQuery {
			qctx.AddError(rdap.CodeBlindlyCopiedParams, "<location header value>",
				"Response redirect contained query parameters copied from the request.")
			return resp
		}

		if hops == maxRedirects {
			resp.Status = rdap.TooManyRedirects
			qctx.Tracker.OverrideStatus(resp.TrackingID, rdap.TooManyRedirects)
			log.Printf("HTTPQuery: Redirect limit %d exceeded for %s", maxRedirects, originalHost)
			return resp
		}

		log.Printf("HTTPQuery: Following redirect %d: %s", hops+1, next)
		resp = e.Do(qctx, next, timeoutSeconds, http.MethodGet, false, true)
		qctx.Tracker.LinkRedirect(parentID, resp.TrackingID)
		parentID = resp.TrackingID
	}

	return resp
}
