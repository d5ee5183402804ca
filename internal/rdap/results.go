// File: backend/internal/rdap/results.go
package rdap

import "sync"

// Stable numbered result codes. These are externally visible identifiers that
// other tooling matches on; new failure conditions get new negative integers,
// existing ones are never renumbered.
const (
	CodeContentType          = -13000
	CodeInvalidJSON          = -13001
	CodeInvalidHTTPStatus    = -13002
	CodeMissingObjectClass   = -13003
	CodeBlindlyCopiedParams  = -13004
	CodeConnectionFailed     = -13007
	CodeHandshakeFailed      = -13008
	CodeRevokedCertificate   = -13010
	CodeExpiredCertificate   = -13011
	CodeCertificateError     = -13012
	CodeHTTPError            = -13014
	CodeNetworkSendFail      = -13016
	CodeNetworkReceiveFail   = -13017
	CodeNoAddresses          = -13019
	CodeNotFoundWarning      = -13020
	CodeConnectionRefused    = -13021
	CodeErrorCodeRequired    = -12107
	CodeErrorCodeMismatch    = -12108
	CodeNameserverSearchReqd = -12610
	CodeNoIPv4Service        = -20400
	CodeNoIPv6Service        = -20401
)

// NoResponse is the sentinel value recorded when a fault left us with no
// response body to quote.
const NoResponse = "no response available"

// ValidationResult is one numbered finding appended to the results sink.
// HTTPStatusCode is zero when no response was obtained.
type ValidationResult struct {
	Code           int    `json:"code"`
	HTTPStatusCode int    `json:"httpStatusCode"`
	Value          string `json:"value"`
	Message        string `json:"message"`
}

// Results is the append-only sink consumed by reporting. One instance exists
// per validation run; it is safe for concurrent use.
type Results struct {
	mu      sync.Mutex
	results []ValidationResult
}

func NewResults() *Results {
	return &Results{}
}

func (r *Results) Add(res ValidationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// GetAll returns a copy of everything recorded so far.
func (r *Results) GetAll() []ValidationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ValidationResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *Results) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Clear empties the sink so the instance can back another run.
func (r *Results) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
}
