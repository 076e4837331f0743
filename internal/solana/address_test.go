package solana

import (
	"errors"
	"testing"
)

const (
	// Well-known on-curve system program authority (wrapped SOL mint).
	wsolMint = "So11111111111111111111111111111111111111112"
	// USDC mint on mainnet.
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "wrapped SOL mint", addr: wsolMint, wantErr: false},
		{name: "USDC mint", addr: usdcMint, wantErr: false},
		{name: "empty", addr: "", wantErr: true},
		{name: "not base58", addr: "0x00ll", wantErr: true},
		{name: "too short", addr: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateAddress(%q) = nil, want error", tt.addr)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateAddress(%q) = %v, want nil", tt.addr, err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("error should wrap ErrInvalidAddress, got %v", err)
			}
		})
	}
}

func TestIsOnCurve_InvalidInput(t *testing.T) {
	if _, err := IsOnCurve("not-base58-!!"); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestIsOnCurve_ValidInput(t *testing.T) {
	// The result depends on the key material; the call itself must not error
	// for a well-formed 32-byte address.
	if _, err := IsOnCurve(usdcMint); err != nil {
		t.Errorf("IsOnCurve(%q) unexpected error: %v", usdcMint, err)
	}
}
