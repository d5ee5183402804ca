// File: backend/internal/httpquery/classify.go
package httpquery

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
)

// Classify maps a transport-layer error onto the connection status taxonomy.
// The most specific cause wins: certificate faults are checked before generic
// TLS faults, TLS before socket-level faults, socket-level before the
// catch-all.
func Classify(err error) rdap.ConnectionStatus {
	if err == nil {
		return rdap.Success
	}

	var expired *CertificateExpiredError
	if errors.As(err, &expired) {
		return rdap.ExpiredCertificate
	}
	var revoked *CertificateRevokedError
	if errors.As(err, &revoked) {
		return rdap.RevokedCertificate
	}

	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &invalidCert) {
		if invalidCert.Reason == x509.Expired {
			return rdap.ExpiredCertificate
		}
		return rdap.CertificateError
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return rdap.CertificateError
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return rdap.CertificateError
	}
	var certVerify *tls.CertificateVerificationError
	if errors.As(err, &certVerify) {
		return rdap.CertificateError
	}

	var recordHeader tls.RecordHeaderError
	if errors.As(err, &recordHeader) {
		return rdap.HandshakeFailed
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return rdap.UnknownHost
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return rdap.ConnectionRefused
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			if opErr.Timeout() {
				return rdap.NetworkSendFail
			}
			return rdap.ConnectionFailed
		}
		if opErr.Op == "write" {
			return rdap.NetworkSendFail
		}
		return rdap.NetworkReceiveFail
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) {
		return rdap.NetworkReceiveFail
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "handshake failure"), strings.Contains(msg, "handshake"):
		return rdap.HandshakeFailed
	case strings.Contains(msg, "malformed HTTP"), strings.Contains(msg, "bad Content-Length"),
		strings.Contains(msg, "failed to parse Location header"):
		return rdap.HTTPError
	case strings.Contains(msg, "Client.Timeout"), strings.Contains(msg, "context deadline exceeded"):
		return rdap.NetworkReceiveFail
	}

	return rdap.ConnectionFailed
}

// StatusResult maps a failed connection status onto its numbered result. The
// ok return is false for statuses that carry no result of their own:
// UnknownHost is pre-network and reported by the endpoint address checks,
// TooManyRequests and TooManyRedirects are policy bounds the connection
// record itself carries.
func StatusResult(status rdap.ConnectionStatus) (code int, message string, ok bool) {
	switch status {
	case rdap.ConnectionFailed:
		return rdap.CodeConnectionFailed, "Failed to connect to server.", true
	case rdap.ConnectionRefused:
		return rdap.CodeConnectionRefused, "Connection refused by host.", true
	case rdap.HandshakeFailed:
		return rdap.CodeHandshakeFailed, "TLS handshake failed.", true
	case rdap.RevokedCertificate:
		return rdap.CodeRevokedCertificate, "Revoked TLS certificate.", true
	case rdap.ExpiredCertificate:
		return rdap.CodeExpiredCertificate, "Expired certificate.", true
	case rdap.CertificateError:
		return rdap.CodeCertificateError, "TLS certificate error.", true
	case rdap.NetworkSendFail:
		return rdap.CodeNetworkSendFail, "Network send fail", true
	case rdap.NetworkReceiveFail:
		return rdap.CodeNetworkReceiveFail, "Network receive fail", true
	case rdap.HTTPError:
		return rdap.CodeHTTPError, "HTTP error.", true
	default:
		return 0, "", false
	}
}
