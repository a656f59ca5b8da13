package utils

import (
	"strings"
	"testing"
)

func TestGenerateSecureOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateSecureOTP()
		if err != nil {
			t.Fatalf("GenerateSecureOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("OTP %q is not 6 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("OTP %q contains non-digit", code)
			}
		}
	}
}

func TestNewConfirmationToken(t *testing.T) {
	a, err := NewConfirmationToken()
	if err != nil {
		t.Fatalf("NewConfirmationToken: %v", err)
	}
	b, err := NewConfirmationToken()
	if err != nil {
		t.Fatalf("NewConfirmationToken: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64", len(a))
	}
	if a == b {
		t.Fatal("two tokens collided")
	}
}

func TestNewTransactionReference(t *testing.T) {
	ref := NewTransactionReference()
	if !strings.HasPrefix(ref, "TXN") {
		t.Fatalf("reference %q missing TXN prefix", ref)
	}
	if ref == NewTransactionReference() {
		t.Fatal("two references collided")
	}
}

func TestFormatNaira(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "₦0.00"},
		{1500, "₦1,500.00"},
		{1234567.5, "₦1,234,567.50"},
	}
	for _, tc := range cases {
		if got := FormatNaira(tc.in); got != tc.want {
			t.Errorf("FormatNaira(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
