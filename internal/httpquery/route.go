// File: backend/internal/httpquery/route.go
package httpquery

import (
	"net"
	"strconv"
	"strings"
)

// Route is the concrete dial plan for one connection: where to connect,
// whether TLS applies, and which local address to bind, if any.
type Route struct {
	Host   string
	Port   int
	Secure bool
	Bind   net.Addr
}

// PlanRoute derives the dial plan from URL components. The port defaults by
// scheme when the URL carries none; the scheme comparison ignores case. A nil
// bind address leaves the local endpoint to the operating system.
func PlanRoute(host, scheme, portStr string, bind net.Addr) Route {
	secure := strings.EqualFold(scheme, "https")

	port := 80
	if secure {
		port = 443
	}
	if portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	return Route{Host: host, Port: port, Secure: secure, Bind: bind}
}
