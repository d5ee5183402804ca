// File: backend/internal/rdap/tracker_test.go
package rdap

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestTrackerStartAndComplete(t *testing.T) {
	tracker := NewConnectionTracker()
	uri := mustURL(t, "https://rdap.example.com/domain/example.com")

	id := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
	require.NotEmpty(t, id)

	rec, ok := tracker.Get(id)
	require.True(t, ok)
	assert.True(t, rec.MainConnection)
	assert.Equal(t, "192.0.2.10", rec.IPAddress)

	require.True(t, tracker.CompleteTracking(id, 200, Success))
	rec, _ = tracker.Get(id)
	assert.Equal(t, 200, rec.StatusCode)
	assert.Equal(t, Success, rec.Status)

	assert.Equal(t, 1, tracker.Count())
	assert.Equal(t, 1, tracker.SuccessCount())
	assert.Equal(t, 0, tracker.ErrorCount())
}

func TestTrackerCompleteUnknownID(t *testing.T) {
	tracker := NewConnectionTracker()
	assert.False(t, tracker.CompleteTracking("missing", 200, Success))
	assert.False(t, tracker.OverrideStatus("missing", TooManyRedirects))
}

func TestTrackerOverrideStatus(t *testing.T) {
	tracker := NewConnectionTracker()
	uri := mustURL(t, "https://rdap.example.com/domain/example.com")

	id := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
	tracker.CompleteTracking(id, 429, Success)
	require.True(t, tracker.OverrideStatus(id, TooManyRequests))

	rec, _ := tracker.Get(id)
	assert.Equal(t, TooManyRequests, rec.Status)
	assert.Equal(t, 1, tracker.ErrorCount())
	assert.Equal(t, 0, tracker.SuccessCount())
}

func TestTrackerLinkRedirect(t *testing.T) {
	tracker := NewConnectionTracker()
	uri := mustURL(t, "https://rdap.example.com/domain/example.com")

	parent := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
	tracker.CompleteTracking(parent, 301, Success)
	child := tracker.StartTracking(mustURL(t, "https://rdap.example.com/domain/other"), "192.0.2.10", IPv4, "GET", false)
	tracker.CompleteTracking(child, 200, Success)

	require.True(t, tracker.LinkRedirect(parent, child))

	parentRec, _ := tracker.Get(parent)
	childRec, _ := tracker.Get(child)
	assert.Equal(t, child, parentRec.RedirectedToID)
	assert.Equal(t, parent, childRec.ParentTrackingID)
	assert.True(t, childRec.RedirectFollow)
	assert.False(t, parentRec.RedirectFollow)
}

func TestTrackerReportTagsAndSummary(t *testing.T) {
	tracker := NewConnectionTracker()
	uri := mustURL(t, "https://rdap.example.com/domain/example.com")

	parent := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
	tracker.CompleteTracking(parent, 302, Success)
	child := tracker.StartTracking(mustURL(t, "https://rdap.example.com/domain/other"), "192.0.2.10", IPv4, "GET", false)
	tracker.CompleteTracking(child, 200, Success)
	tracker.LinkRedirect(parent, child)

	report := tracker.Report()
	assert.Contains(t, report, "[REDIRECTED]")
	assert.Contains(t, report, "[REDIRECT_FOLLOW]")
	assert.Contains(t, report, "└─►")
	assert.Contains(t, report, "Summary: 2 connections, 2 successful, 0 errors.")

	// The follow appears once, under its parent, not a second time standalone.
	assert.Equal(t, 1, strings.Count(report, "[REDIRECT_FOLLOW]"))
}

func TestTrackerReportEmpty(t *testing.T) {
	tracker := NewConnectionTracker()
	assert.Equal(t, "No connections tracked", tracker.Report())
}

func TestTrackerAllNotFound(t *testing.T) {
	uri := mustURL(t, "https://rdap.example.com/domain/example.com")

	t.Run("no relevant records", func(t *testing.T) {
		tracker := NewConnectionTracker()
		assert.False(t, tracker.AllNotFound())
	})

	t.Run("single 404 main", func(t *testing.T) {
		tracker := NewConnectionTracker()
		id := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
		tracker.CompleteTracking(id, 404, Success)
		assert.True(t, tracker.AllNotFound())
	})

	t.Run("mixed outcomes", func(t *testing.T) {
		tracker := NewConnectionTracker()
		id := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
		tracker.CompleteTracking(id, 404, Success)
		id2 := tracker.StartTracking(uri, "192.0.2.10", IPv4, "HEAD", false)
		tracker.CompleteTracking(id2, 200, Success)
		assert.False(t, tracker.AllNotFound())
	})

	t.Run("non-main GET ignored", func(t *testing.T) {
		tracker := NewConnectionTracker()
		id := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", true)
		tracker.CompleteTracking(id, 404, Success)
		id2 := tracker.StartTracking(uri, "192.0.2.10", IPv4, "GET", false)
		tracker.CompleteTracking(id2, 200, Success)
		assert.True(t, tracker.AllNotFound())
	})
}

func TestConnectionStatusNames(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success.String())
	assert.Equal(t, "EXPIRED_CERTIFICATE", ExpiredCertificate.String())
	assert.Equal(t, "TOO_MANY_REDIRECTS", TooManyRedirects.String())
}

func TestProtocolFromString(t *testing.T) {
	assert.Equal(t, IPv6, ProtocolFromString("ipv6"))
	assert.Equal(t, IPv6, ProtocolFromString("IPv6"))
	assert.Equal(t, IPv4, ProtocolFromString("ipv4"))
	assert.Equal(t, IPv4, ProtocolFromString(""))
	assert.Equal(t, "IPv4", IPv4.String())
	assert.Equal(t, "IPv6", IPv6.String())
}
