package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	address, err := Derive([]byte("maitme-test-account-1"))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(address, "0x"), "Address should start with 0x")
	require.Equal(t, AddressLength, len(address), "Address should be 42 characters long")
	require.NoError(t, Validate(address), "Address should be valid")

	// Same seed must produce the same address
	again, err := Derive([]byte("maitme-test-account-1"))
	require.NoError(t, err)
	require.Equal(t, address, again)

	// Different seed must produce a different address
	other, err := Derive([]byte("maitme-test-account-2"))
	require.NoError(t, err)
	require.NotEqual(t, address, other)

	_, err = Derive(nil)
	require.Error(t, err, "Empty seed should be rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{
			name:    "valid address",
			address: "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321",
			valid:   true,
		},
		{
			name:    "valid address uppercase",
			address: "0x4A7B3C8D9E2F1A6B5C4D3E2F1A9B8C7D6E5F4321",
			valid:   true,
		},
		{
			name:    "invalid - no 0x prefix",
			address: "4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321",
			valid:   false,
		},
		{
			name:    "invalid - wrong prefix",
			address: "0y4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321",
			valid:   false,
		},
		{
			name:    "invalid - too short",
			address: "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f43",
			valid:   false,
		},
		{
			name:    "invalid - too long",
			address: "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f43210",
			valid:   false,
		},
		{
			name:    "invalid - bad hex character",
			address: "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f432g",
			valid:   false,
		},
		{
			name:    "invalid - empty",
			address: "",
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.address)
			if tt.valid {
				require.NoError(t, err)
				require.True(t, IsValid(tt.address))
			} else {
				require.Error(t, err)
				require.False(t, IsValid(tt.address))
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	normalized, err := Normalize("0x4A7B3C8D9E2F1A6B5C4D3E2F1A9B8C7D6E5F4321")
	require.NoError(t, err)
	require.Equal(t, "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321", normalized)

	_, err = Normalize("not-an-address")
	require.Error(t, err)
}

func TestIsZero(t *testing.T) {
	require.True(t, IsZero("0x0000000000000000000000000000000000000000"))
	require.False(t, IsZero("0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321"))
	require.False(t, IsZero("0x00"))
}
