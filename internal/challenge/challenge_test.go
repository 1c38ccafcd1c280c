package challenge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshinn/x402toolkit/internal/domain"
)

func sampleChallenge(t *testing.T) Challenge {
	t.Helper()
	currency, err := domain.NewCurrency("USDC")
	require.NoError(t, err)
	amount, err := domain.NewAmount("100", currency)
	require.NoError(t, err)
	recipient, err := domain.NewAddressLike("DevR1111111111111111111111111111111111")
	require.NoError(t, err)
	network, err := domain.NewNetworkTag("devnet")
	require.NoError(t, err)
	resource, err := domain.NewResourcePath("/api/x")
	require.NoError(t, err)

	issued := domain.NewTimestamp(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	expires := issued.Add(DefaultTTL)

	return Challenge{
		Recipient: recipient,
		Amount:    amount,
		Currency:  currency,
		Memo:      domain.NewMemo(),
		Network:   network,
		Resource:  resource,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, c.Recipient.String(), decoded.Recipient.String())
	assert.Equal(t, c.Amount.String(), decoded.Amount.String())
	assert.Equal(t, c.Currency.String(), decoded.Currency.String())
	assert.True(t, c.Memo.Equal(decoded.Memo))
	assert.Equal(t, c.Network.String(), decoded.Network.String())
	assert.Equal(t, c.Resource.String(), decoded.Resource.String())
	assert.Equal(t, c.IssuedAt.String(), decoded.IssuedAt.String())
	assert.Equal(t, c.ExpiresAt.String(), decoded.ExpiresAt.String())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	reencoded := Encode(decoded)
	assert.Equal(t, encoded, reencoded)
}

func TestEncodeCanonicalOrder(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c)

	assert.Regexp(t, `^x402-devnet recipient=\S+ amount=\S+ currency=\S+ memo=\S+ network=\S+ timestamp=\S+ resource=\S+ expires=\S+$`, encoded)
}

func TestDecodeRejectsUnknownKey(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c) + " bogus=1"
	_, err := Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsDuplicateKey(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c) + " amount=200"
	_, err := Decode(encoded)
	assert.Error(t, err)
}

func TestDecodeRejectsMissingKey(t *testing.T) {
	_, err := Decode("x402-devnet recipient=abc amount=1")
	assert.Error(t, err)
}

func TestDecodeRejectsNetworkMismatch(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c)
	badPrefix := "x402-testnet" + encoded[len("x402-devnet"):]
	_, err := Decode(badPrefix)
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedPrefix(t *testing.T) {
	_, err := Decode("not-x402 recipient=abc")
	assert.Error(t, err)
}

func TestDecodeRejectsNonPositiveAmount(t *testing.T) {
	c := sampleChallenge(t)
	encoded := Encode(c)
	zeroed := replaceField(encoded, "amount", "0")
	_, err := Decode(zeroed)
	assert.Error(t, err)
}

func TestIsExpired(t *testing.T) {
	c := sampleChallenge(t)
	assert.False(t, c.IsExpired(c.IssuedAt))
	assert.True(t, c.IsExpired(c.ExpiresAt))
	assert.True(t, c.IsExpired(c.ExpiresAt.Add(time.Second)))
}

func replaceField(encoded, key, newValue string) string {
	fields := strings.Fields(encoded)
	for i, f := range fields {
		if strings.HasPrefix(f, key+"=") {
			fields[i] = key + "=" + newValue
		}
	}
	return strings.Join(fields, " ")
}
