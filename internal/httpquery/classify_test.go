// File: backend/internal/httpquery/classify_test.go
package httpquery

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want rdap.ConnectionStatus
	}{
		{"nil error", nil, rdap.Success},
		{"expired leaf", &CertificateExpiredError{Subject: "CN=x", NotAfter: time.Now()}, rdap.ExpiredCertificate},
		{"wrapped expired leaf", fmt.Errorf("request: %w", &CertificateExpiredError{}), rdap.ExpiredCertificate},
		{"revoked", &CertificateRevokedError{Subject: "CN=x"}, rdap.RevokedCertificate},
		{"x509 expired", x509.CertificateInvalidError{Reason: x509.Expired}, rdap.ExpiredCertificate},
		{"x509 not authorized", x509.CertificateInvalidError{Reason: x509.NotAuthorizedToSign}, rdap.CertificateError},
		{"unknown authority", x509.UnknownAuthorityError{}, rdap.CertificateError},
		{"hostname mismatch", x509.HostnameError{Certificate: &x509.Certificate{}, Host: "rdap.example.com"}, rdap.CertificateError},
		{"dns failure", &net.DNSError{Name: "rdap.example.com", IsNotFound: true}, rdap.UnknownHost},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, rdap.ConnectionRefused},
		{"dial timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, rdap.NetworkSendFail},
		{"dial other", &net.OpError{Op: "dial", Err: errors.New("no route to host")}, rdap.ConnectionFailed},
		{"write fail", &net.OpError{Op: "write", Err: syscall.EPIPE}, rdap.NetworkSendFail},
		{"read fail", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, rdap.NetworkReceiveFail},
		{"eof mid body", io.ErrUnexpectedEOF, rdap.NetworkReceiveFail},
		{"reset without opError", syscall.ECONNRESET, rdap.NetworkReceiveFail},
		{"malformed http", errors.New(`malformed HTTP response "x"`), rdap.HTTPError},
		{"client timeout", errors.New("Get \"https://x\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)"), rdap.NetworkReceiveFail},
		{"anything else", errors.New("boom"), rdap.ConnectionFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestStatusResult(t *testing.T) {
	tests := []struct {
		status   rdap.ConnectionStatus
		wantCode int
	}{
		{rdap.ConnectionFailed, rdap.CodeConnectionFailed},
		{rdap.ConnectionRefused, rdap.CodeConnectionRefused},
		{rdap.HandshakeFailed, rdap.CodeHandshakeFailed},
		{rdap.RevokedCertificate, rdap.CodeRevokedCertificate},
		{rdap.ExpiredCertificate, rdap.CodeExpiredCertificate},
		{rdap.CertificateError, rdap.CodeCertificateError},
		{rdap.NetworkSendFail, rdap.CodeNetworkSendFail},
		{rdap.NetworkReceiveFail, rdap.CodeNetworkReceiveFail},
		{rdap.HTTPError, rdap.CodeHTTPError},
	}
	for _, tc := range tests {
		code, msg, ok := StatusResult(tc.status)
		assert.True(t, ok, tc.status.String())
		assert.Equal(t, tc.wantCode, code, tc.status.String())
		assert.NotEmpty(t, msg)
	}

	// Pre-network and policy-bound statuses carry no numbered result.
	for _, status := range []rdap.ConnectionStatus{
		rdap.Success, rdap.UnknownHost, rdap.TooManyRequests, rdap.TooManyRedirects,
	} {
		_, _, ok := StatusResult(status)
		assert.False(t, ok, status.String())
	}
}
