package form

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/verte-zerg/bfhl/internal/model"
)

const errorPrefix = "Error: "

// shapeMessage is shown for every ShapeError; the reason only goes to the log.
const shapeMessage = "Invalid input format"

// Describe turns any submission error into the single line shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return errorPrefix + describe(err)
}

func describe(err error) string {
	var (
		shapeErr *model.ShapeError
		parseErr *model.ParseError
		httpErr  *model.HTTPError
		netErr   *model.NetworkError
		setupErr *model.RequestSetupError
	)
	switch {
	case errors.As(err, &shapeErr):
		return shapeMessage
	case errors.As(err, &parseErr):
		if parseErr.Source == model.SourceInput {
			return "Invalid JSON: " + unwrapMessage(parseErr)
		}
		return "Unexpected response: " + parseErr.Error()
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.As(err, &netErr):
		return categorizeNetworkError(netErr.Err)
	case errors.As(err, &setupErr):
		return "Request setup failed: " + setupErr.Error()
	case errors.Is(err, ErrBusy):
		return "A submission is already in progress"
	default:
		return err.Error()
	}
}

func unwrapMessage(err *model.ParseError) string {
	if err.Err == nil {
		return err.Error()
	}
	return err.Err.Error()
}

func categorizeNetworkError(err error) string {
	if err == nil {
		return "Network error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timeout - the server took too long to respond"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timeout - the server took too long to respond"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS resolution failed - verify hostname is correct and network is available"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "Connection refused - check if server is running and port is correct"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "Connection reset by server - server may have crashed or network issue occurred"
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return "Network unreachable - check network connection and firewall settings"
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	switch {
	case errors.As(err, &unknownAuthority):
		return "TLS certificate verification failed - certificate is not trusted"
	case errors.As(err, &hostnameErr):
		return "TLS hostname mismatch - certificate doesn't match the requested hostname"
	case errors.As(err, &invalidCert):
		return "TLS certificate is invalid or expired"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "eof"):
		return "Connection closed unexpectedly - server may have terminated the connection prematurely"
	case strings.Contains(msg, "tls") || strings.Contains(msg, "x509"):
		return "TLS handshake failed - " + err.Error()
	}
	return "Network error: " + err.Error()
}
