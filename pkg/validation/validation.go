package validation

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	// SubjectRegex validates token subjects and session IDs
	SubjectRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidatePeerAddress validates a host:port a datagram can be sent to.
func ValidatePeerAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("peer address is required")
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid peer address %q: %w", address, err)
	}
	if host == "" {
		return fmt.Errorf("peer address %q has no host", address)
	}
	return validatePort(port, false)
}

// ValidateListenAddress validates a bind address; the host may be empty and port 0 is allowed.
func ValidateListenAddress(address string) error {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", address, err)
	}
	return validatePort(port, true)
}

func validatePort(port string, allowZero bool) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port %q is not a number", port)
	}
	if n < 0 || n > 65535 || (n == 0 && !allowZero) {
		return fmt.Errorf("port %d out of range", n)
	}
	return nil
}

// ValidateSubject validates the subject a control API token is issued to.
func ValidateSubject(subject string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject is required")
	}
	if err := ValidateStringLength(subject, 3, 64, "subject"); err != nil {
		return err
	}
	if !SubjectRegex.MatchString(subject) {
		return fmt.Errorf("subject contains invalid characters (only letters, numbers, _, -, . allowed)")
	}
	return nil
}

// ValidateSessionID validates a session ID taken from a URL.
func ValidateSessionID(id string) error {
	if err := ValidateStringLength(id, 1, 64, "session id"); err != nil {
		return err
	}
	if !SubjectRegex.MatchString(id) {
		return fmt.Errorf("session id contains invalid characters")
	}
	return nil
}

// ValidateQuality validates a JPEG quality value.
func ValidateQuality(quality int) error {
	if quality < 0 || quality > 100 {
		return fmt.Errorf("quality must be within [0,100], got %d", quality)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := len([]rune(s))
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
