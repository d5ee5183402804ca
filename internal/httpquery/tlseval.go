// File: backend/internal/httpquery/tlseval.go
package httpquery

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// CertificateExpiredError reports a leaf certificate outside its validity
// window at handshake time.
type CertificateExpiredError struct {
	Subject   string
	NotBefore time.Time
	NotAfter  time.Time
}

func (e *CertificateExpiredError) Error() string {
	return fmt.Sprintf("certificate for %s expired or not yet valid (notBefore=%s notAfter=%s)",
		e.Subject, e.NotBefore.Format(time.RFC3339), e.NotAfter.Format(time.RFC3339))
}

// CertificateRevokedError reports a certificate rejected by revocation
// checking.
type CertificateRevokedError struct {
	Subject string
}

func (e *CertificateRevokedError) Error() string {
	return fmt.Sprintf("certificate for %s is revoked", e.Subject)
}

// NewLeafCertConfig builds the TLS configuration for a host: standard chain
// verification plus an explicit validity-window check on the leaf so expired
// certificates classify distinctly from other certificate faults.
func NewLeafCertConfig(host string) *tls.Config {
	return &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("server presented no certificates")
			}
			leaf, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return fmt.Errorf("failed to parse leaf certificate: %w", err)
			}
			now := time.Now()
			if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
				return &CertificateExpiredError{
					Subject:   leaf.Subject.String(),
					NotBefore: leaf.NotBefore,
					NotAfter:  leaf.NotAfter,
				}
			}
			return nil
		},
	}
}
