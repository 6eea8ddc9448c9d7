package validation

import (
	"strings"
	"testing"
)

func TestValidatePeerAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"ipv4", "127.0.0.1:6666", false},
		{"hostname", "receiver.local:6666", false},
		{"ipv6", "[::1]:6666", false},
		{"empty", "", true},
		{"no port", "127.0.0.1", true},
		{"no host", ":6666", true},
		{"port zero", "127.0.0.1:0", true},
		{"port too large", "127.0.0.1:70000", true},
		{"port not numeric", "127.0.0.1:http", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePeerAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePeerAddress(%q) error = %v, wantErr %v", tt.address, err, tt.wantErr)
			}
		})
	}
}

func TestValidateListenAddress(t *testing.T) {
	for _, ok := range []string{":6666", "0.0.0.0:6666", "127.0.0.1:0"} {
		if err := ValidateListenAddress(ok); err != nil {
			t.Errorf("ValidateListenAddress(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"6666", ":-1", "localhost"} {
		if err := ValidateListenAddress(bad); err == nil {
			t.Errorf("ValidateListenAddress(%q) should fail", bad)
		}
	}
}

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		subject string
		wantErr bool
	}{
		{"ops-team", false},
		{"alice.smith", false},
		{"ab", true},
		{"", true},
		{"has space", true},
		{strings.Repeat("a", 65), true},
	}

	for _, tt := range tests {
		err := ValidateSubject(tt.subject)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSubject(%q) error = %v, wantErr %v", tt.subject, err, tt.wantErr)
		}
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("6f1c2a9e-1d2b-4c8e-9a0f-3b5d7e9f1a2c"); err != nil {
		t.Errorf("uuid should be valid: %v", err)
	}
	if err := ValidateSessionID("../etc/passwd"); err == nil {
		t.Error("path traversal should be rejected")
	}
}

func TestValidateQuality(t *testing.T) {
	for _, q := range []int{0, 30, 100} {
		if err := ValidateQuality(q); err != nil {
			t.Errorf("ValidateQuality(%d) = %v", q, err)
		}
	}
	for _, q := range []int{-1, 101} {
		if err := ValidateQuality(q); err == nil {
			t.Errorf("ValidateQuality(%d) should fail", q)
		}
	}
}
