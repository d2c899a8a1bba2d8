package llmerrors

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Classify wraps a raw provider error with a classified type based on its
// shape and message. Already-classified errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrorTypeTimeout, err, "deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(ErrorTypeTimeout, err, "network timeout")
		}
		return Wrap(ErrorTypeTransport, err, "network error")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return Wrap(ErrorTypeTimeout, err, "")
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return Wrap(ErrorTypeRateLimit, err, "")
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return Wrap(ErrorTypeAuth, err, "")
	case strings.Contains(msg, "connection") || strings.Contains(msg, "unreachable") ||
		strings.Contains(msg, "eof") || strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return Wrap(ErrorTypeTransport, err, "")
	default:
		return Wrap(ErrorTypeUnknown, err, "")
	}
}
