// File: backend/internal/rdap/status.go
package rdap

// ConnectionStatus is the closed set of outcomes a single network attempt can
// end in. Exactly one value is assigned per attempt and it is terminal for
// that attempt.
type ConnectionStatus int

const (
	Success ConnectionStatus = iota
	UnknownHost
	ConnectionRefused
	ConnectionFailed
	NetworkSendFail
	NetworkReceiveFail
	ExpiredCertificate
	RevokedCertificate
	CertificateError
	HandshakeFailed
	TooManyRequests
	TooManyRedirects
	HTTPError
)

var statusNames = map[ConnectionStatus]string{
	Success:            "SUCCESS",
	UnknownHost:        "UNKNOWN_HOST",
	ConnectionRefused:  "CONNECTION_REFUSED",
	ConnectionFailed:   "CONNECTION_FAILED",
	NetworkSendFail:    "NETWORK_SEND_FAIL",
	NetworkReceiveFail: "NETWORK_RECEIVE_FAIL",
	ExpiredCertificate: "EXPIRED_CERTIFICATE",
	RevokedCertificate: "REVOKED_CERTIFICATE",
	CertificateError:   "CERTIFICATE_ERROR",
	HandshakeFailed:    "HANDSHAKE_FAILED",
	TooManyRequests:    "TOO_MANY_REQUESTS",
	TooManyRedirects:   "TOO_MANY_REDIRECTS",
	HTTPError:          "HTTP_ERROR",
}

func (s ConnectionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN_STATUS"
}

// NetworkProtocol selects the address family a validation run is forced onto.
type NetworkProtocol int

const (
	IPv4 NetworkProtocol = iota
	IPv6
)

func (p NetworkProtocol) String() string {
	if p == IPv6 {
		return "IPv6"
	}
	return "IPv4"
}

// ProtocolFromString maps the config-file spelling ("ipv4"/"ipv6") onto a
// NetworkProtocol. Anything unrecognized falls back to IPv4.
func ProtocolFromString(s string) NetworkProtocol {
	switch s {
	case "ipv6", "IPv6", "v6":
		return IPv6
	default:
		return IPv4
	}
}
