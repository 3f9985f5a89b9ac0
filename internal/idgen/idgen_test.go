package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id := NewID("card")
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "card", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], 8)
}

func TestNewID_Distinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID("op")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestEAN13CheckDigit_KnownVector(t *testing.T) {
	// 4006381333931 is a published valid EAN-13.
	assert.Equal(t, byte('1'), EAN13CheckDigit("400638133393"))
	assert.Equal(t, byte('0'), EAN13CheckDigit("000000000000"))
}

func TestNewBarcode_ValidEAN13(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewBarcode(nil)
		require.Len(t, code, 13)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "barcode %s contains non-digit", code)
		}
		assert.Equal(t, EAN13CheckDigit(code[:12]), code[12], "check digit mismatch in %s", code)
	}
}

func TestNewBarcode_AvoidsUsed(t *testing.T) {
	used := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code := NewBarcode(used)
		_, taken := used[code]
		require.False(t, taken)
		used[code] = struct{}{}
	}
}

func TestNewOperationCode_Format(t *testing.T) {
	code := NewOperationCode(nil)
	require.Len(t, code, 7)
	assert.True(t, strings.HasPrefix(code, "OP-"))
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestNewOperationCode_AvoidsUsed(t *testing.T) {
	used := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := NewOperationCode(used)
		_, taken := used[code]
		require.False(t, taken)
		used[code] = struct{}{}
	}
}

func TestNewOperationCode_ExhaustionReturnsCandidate(t *testing.T) {
	// Fill the entire OP-XXXX space so every candidate collides; the
	// generator must still terminate and hand back its last candidate.
	used := make(map[string]struct{})
	const hex = "0123456789ABCDEF"
	for _, a := range hex {
		for _, b := range hex {
			for _, c := range hex {
				for _, d := range hex {
					used["OP-"+string(a)+string(b)+string(c)+string(d)] = struct{}{}
				}
			}
		}
	}
	code := NewOperationCode(used)
	_, taken := used[code]
	assert.True(t, taken, "full space must yield a colliding candidate")
}
