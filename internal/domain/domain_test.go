package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPortBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"below range", 1023, true},
		{"lower bound", 1024, false},
		{"upper bound", 65535, false},
		{"above range", 65536, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPort(tc.port)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.port, p.Int())
		})
	}
}

func TestNewAddressLikeBoundaries(t *testing.T) {
	mk := func(n int) string {
		alphabet := "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
		out := make([]byte, n)
		for i := range out {
			out[i] = alphabet[i%len(alphabet)]
		}
		return string(out)
	}

	cases := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"31 chars", 31, true},
		{"32 chars", 32, false},
		{"44 chars", 44, false},
		{"45 chars", 45, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAddressLike(mk(tc.length))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewAddressLikeRejectsExcludedChars(t *testing.T) {
	_, err := NewAddressLike("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl")
	assert.Error(t, err)
}

func TestNewAmountRejectsNegative(t *testing.T) {
	usdc, err := NewCurrency("USDC")
	require.NoError(t, err)

	_, err = NewAmount("-1", usdc)
	assert.Error(t, err)

	zero, err := NewAmount("0", usdc)
	assert.NoError(t, err)
	assert.True(t, zero.IsZero())

	smallest, err := NewAmount("0.000001", usdc)
	assert.NoError(t, err)
	assert.False(t, smallest.IsZero())
}

func TestAmountAddRequiresSameCurrency(t *testing.T) {
	usdc, _ := NewCurrency("USDC")
	sol, _ := NewCurrency("SOL")
	a := MustAmount("1", usdc)
	b := MustAmount("1", sol)

	assert.Panics(t, func() { a.Add(b) })
}

func TestNewCurrencyRejectsUnknownTag(t *testing.T) {
	_, err := NewCurrency("DOGE")
	assert.Error(t, err)
}

func TestMemoGenerateAndParseRoundTrip(t *testing.T) {
	m := NewMemo()
	parsed, err := ParseMemo(m.String())
	require.NoError(t, err)
	assert.True(t, m.Equal(parsed))
}

func TestParseMemoRejectsMalformed(t *testing.T) {
	cases := []string{
		"req-not-a-uuid",
		"req-123",
		"req-" + "00000000-0000-0000-0000-000000000000", // not version 4
		"",
	}
	for _, raw := range cases {
		_, err := ParseMemo(raw)
		assert.Errorf(t, err, "expected %q to be rejected", raw)
	}
}

func TestResourcePathMatches(t *testing.T) {
	wildcard, err := NewResourcePath("/api/*")
	require.NoError(t, err)
	assert.True(t, wildcard.Matches("/api/x"))
	assert.True(t, wildcard.Matches("/api/"))
	assert.False(t, wildcard.Matches("/other"))

	exact, err := NewResourcePath("/api/v1/x")
	require.NoError(t, err)
	assert.True(t, exact.Matches("/api/v1/x"))
	assert.False(t, exact.Matches("/api/v1/y"))
}

func TestResourcePathRejectsMissingLeadingSlash(t *testing.T) {
	_, err := NewResourcePath("api/x")
	assert.Error(t, err)
}

func TestResourcePathRejectsMultipleWildcards(t *testing.T) {
	_, err := NewResourcePath("/api/*/x*")
	assert.Error(t, err)
}
