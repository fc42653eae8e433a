package entity

import (
	"errors"
	"net"
	"testing"
)

func TestValidateEndpointURL_ReturnsValidationError(t *testing.T) {
	err := ValidateEndpointURL("http://192.168.1.1/hook", true)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if vErr.Field != "url" {
		t.Errorf("Field = %q, want %q", vErr.Field, "url")
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "127.0.0.1", want: true},
		{ip: "::1", want: true},
		{ip: "10.1.2.3", want: true},
		{ip: "172.16.0.1", want: true},
		{ip: "192.168.0.10", want: true},
		{ip: "169.254.169.254", want: true},
		{ip: "8.8.8.8", want: false},
		{ip: "203.0.113.7", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}
