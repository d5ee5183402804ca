// File: backend/internal/rdap/context.go
package rdap

import (
	"errors"
	"net"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
)

// ErrNoAddress is returned by an AddressResolver when the host has no address
// in the requested family. The caller must not open a socket after seeing it.
var ErrNoAddress = errors.New("host has no address in the requested family")

// AddressResolver resolves a hostname within one forced address family.
type AddressResolver interface {
	// Resolve returns an address of the requested family, or ErrNoAddress.
	Resolve(host string, protocol NetworkProtocol) (net.IP, error)
	// HasAddresses reports whether any address of the family exists.
	HasAddresses(host string, protocol NetworkProtocol) bool
}

// QueryContext carries the per-run state: the validator configuration, the
// results sink, the connection ledger and the resolver. One instance is built
// per validation run and passed explicitly to every call, so runs never share
// hidden state.
type QueryContext struct {
	Config   *config.RDAPValidatorConfig
	Results  *Results
	Tracker  *ConnectionTracker
	Resolver AddressResolver
}

func NewQueryContext(cfg *config.RDAPValidatorConfig, resolver AddressResolver) *QueryContext {
	return &QueryContext{
		Config:   cfg,
		Results:  NewResults(),
		Tracker:  NewConnectionTracker(),
		Resolver: resolver,
	}
}

// Protocol returns the address family this run is forced onto.
func (q *QueryContext) Protocol() NetworkProtocol {
	return ProtocolFromString(q.Config.NetworkProtocol)
}

// AddError appends a numbered result with no associated HTTP status.
func (q *QueryContext) AddError(code int, value, message string) {
	q.Results.Add(ValidationResult{Code: code, Value: value, Message: message})
}

// AddErrorWithStatus appends a numbered result tied to an HTTP status code.
func (q *QueryContext) AddErrorWithStatus(httpStatusCode, code int, value, message string) {
	q.Results.Add(ValidationResult{Code: code, HTTPStatusCode: httpStatusCode, Value: value, Message: message})
}
