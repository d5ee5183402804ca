// File: backend/internal/rdap/tracker.go
package rdap

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionRecord describes one physical network attempt, including each
// redirect hop. Records are immutable once completed, except for the redirect
// linkage fields which are set exactly once by the goroutine that decided to
// chase the Location header.
type ConnectionRecord struct {
	TrackingID     string           `json:"trackingId"`
	URI            string           `json:"uri"`
	IPAddress      string           `json:"ipAddress"`
	Protocol       NetworkProtocol  `json:"protocol"`
	HTTPMethod     string           `json:"httpMethod"`
	StatusCode     int              `json:"statusCode"`
	Status         ConnectionStatus `json:"status"`
	MainConnection bool             `json:"mainConnection"`
	StartTime      time.Time        `json:"startTime"`
	EndTime        time.Time        `json:"endTime"`
	completed      bool

	// Redirect linkage. ParentTrackingID on record B equals the tracking id
	// of record A iff A's RedirectedToID equals B's tracking id.
	ParentTrackingID string `json:"parentTrackingId,omitempty"`
	RedirectedToID   string `json:"redirectedToId,omitempty"`
	RedirectFollow   bool   `json:"isRedirectFollow"`
}

func (rec *ConnectionRecord) describe() string {
	duration := "unknown"
	if rec.completed {
		duration = fmt.Sprintf("%dms", rec.EndTime.Sub(rec.StartTime).Milliseconds())
	}
	result := "in progress"
	if rec.completed {
		result = rec.Status.String()
	}
	main := ""
	if rec.MainConnection {
		main = "[MAIN] "
	}
	return fmt.Sprintf("[%s] %s%s %s (%s) over %s with ID %s - Status: %d, Duration: %s, Result: %s",
		rec.StartTime.UTC().Format(time.RFC3339), main, rec.HTTPMethod, rec.URI,
		rec.IPAddress, rec.Protocol, rec.TrackingID, rec.StatusCode, duration, result)
}

// ConnectionTracker is the append-only ledger of every attempt made during a
// validation run. One instance exists per run; appends and reads are safe
// under concurrent use.
type ConnectionTracker struct {
	mu      sync.Mutex
	records []*ConnectionRecord
	byID    map[string]*ConnectionRecord
}

func NewConnectionTracker() *ConnectionTracker {
	return &ConnectionTracker{byID: make(map[string]*ConnectionRecord)}
}

// StartTracking appends a new in-progress record and returns its tracking id.
func (t *ConnectionTracker) StartTracking(uri *url.URL, ipAddress string, protocol NetworkProtocol, httpMethod string, mainConnection bool) string {
	rec := &ConnectionRecord{
		TrackingID:     uuid.NewString(),
		URI:            uri.String(),
		IPAddress:      ipAddress,
		Protocol:       protocol,
		HTTPMethod:     httpMethod,
		MainConnection: mainConnection,
		StartTime:      time.Now(),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	t.byID[rec.TrackingID] = rec
	return rec.TrackingID
}

// CompleteTracking finalizes the record with the HTTP status code (zero when
// no response was obtained) and the terminal ConnectionStatus.
func (t *ConnectionTracker) CompleteTracking(trackingID string, statusCode int, status ConnectionStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.byID[trackingID]
	if !ok || rec.completed {
		return false
	}
	rec.StatusCode = statusCode
	rec.Status = status
	rec.EndTime = time.Now()
	rec.completed = true
	return true
}

// OverrideStatus replaces the terminal status of an already completed record.
// Used when a policy decision (redirect bound exhausted) reclassifies the
// final hop after the exchange itself succeeded.
func (t *ConnectionTracker) OverrideStatus(trackingID string, status ConnectionStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.byID[trackingID]
	if !ok {
		return false
	}
	rec.Status = status
	return true
}

// LinkRedirect records that parent redirected into child. Both directions of
// the linkage are set together so the relation stays mutual.
func (t *ConnectionTracker) LinkRedirect(parentID, childID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	parent, okP := t.byID[parentID]
	child, okC := t.byID[childID]
	if !okP || !okC {
		return false
	}
	parent.RedirectedToID = childID
	child.ParentTrackingID = parentID
	child.RedirectFollow = true
	return true
}

// Get returns a copy of the record for a tracking id, or false.
func (t *ConnectionTracker) Get(trackingID string) (ConnectionRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.byID[trackingID]
	if !ok {
		return ConnectionRecord{}, false
	}
	return *rec, true
}

// Records returns a snapshot of all records in append order.
func (t *ConnectionTracker) Records() []ConnectionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ConnectionRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	return out
}

func (t *ConnectionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *ConnectionTracker) SuccessCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, rec := range t.records {
		if rec.completed && rec.Status == Success {
			count++
		}
	}
	return count
}

func (t *ConnectionTracker) ErrorCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, rec := range t.records {
		if rec.completed && rec.Status != Success {
			count++
		}
	}
	return count
}

// Report renders the connection tree for diagnostics. The [REDIRECTED] /
// [REDIRECT_FOLLOW] tags and the "└─►" connector are a contract: downstream
// tooling greps for them.
func (t *ConnectionTracker) Report() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.records) == 0 {
		return "No connections tracked"
	}

	var sb strings.Builder
	sb.WriteString("Connection Tracking Report:\n")

	displayedAsFollows := make(map[string]bool)
	for _, rec := range t.records {
		if rec.RedirectFollow && displayedAsFollows[rec.TrackingID] {
			continue
		}
		sb.WriteString(rec.describe())
		if rec.RedirectedToID != "" {
			sb.WriteString(" [REDIRECTED]")
		} else if rec.RedirectFollow {
			sb.WriteString(" [REDIRECT_FOLLOW]")
		}
		sb.WriteString("\n")

		// Walk the chain below this record, indenting each followed hop.
		next := rec.RedirectedToID
		for next != "" {
			follow, ok := t.byID[next]
			if !ok {
				break
			}
			sb.WriteString("  └─► ")
			sb.WriteString(follow.describe())
			sb.WriteString(" [REDIRECT_FOLLOW]\n")
			displayedAsFollows[follow.TrackingID] = true
			next = follow.RedirectedToID
		}
	}

	successes := 0
	errors := 0
	for _, rec := range t.records {
		if !rec.completed {
			continue
		}
		if rec.Status == Success {
			successes++
		} else {
			errors++
		}
	}
	fmt.Fprintf(&sb, "Summary: %d connections, %d successful, %d errors.", len(t.records), successes, errors)
	return sb.String()
}

// AllNotFound reports whether every completed main or HEAD attempt of the run
// returned HTTP 404. False when no such attempt exists.
func (t *ConnectionTracker) AllNotFound() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	foundRelevant := false
	for _, rec := range t.records {
		if !rec.MainConnection && !strings.EqualFold(rec.HTTPMethod, "HEAD") {
			continue
		}
		foundRelevant = true
		if rec.StatusCode != 404 {
			return false
		}
	}
	return foundRelevant
}
