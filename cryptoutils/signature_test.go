package cryptoutils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/signet-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("registry digest"))

	sig, err := SignDigest(digest, key)
	require.NoError(t, err)
	assert.Contains(t, []uint8{27, 28}, sig.V)

	t.Run("recovers signer with 27/28 recovery id", func(t *testing.T) {
		signer, err := Recover(digest, sig)
		require.NoError(t, err)
		assert.Equal(t, IdentityOf(key), signer)
	})

	t.Run("recovers signer with 0/1 recovery id", func(t *testing.T) {
		raw := sig
		raw.V -= 27
		signer, err := Recover(digest, raw)
		require.NoError(t, err)
		assert.Equal(t, IdentityOf(key), signer)
	})

	t.Run("different digest recovers a different identity", func(t *testing.T) {
		other := crypto.Keccak256Hash([]byte("another digest"))
		signer, err := Recover(other, sig)
		if err == nil {
			assert.NotEqual(t, IdentityOf(key), signer)
		}
	})
}

func TestRecover_Malformed(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("registry digest"))
	sig, err := SignDigest(digest, key)
	require.NoError(t, err)

	secp256k1N := crypto.S256().Params().N

	tests := []struct {
		name   string
		mutate func(s Signature) Signature
	}{
		{
			name: "invalid recovery id",
			mutate: func(s Signature) Signature {
				s.V = 5
				return s
			},
		},
		{
			name: "zero r",
			mutate: func(s Signature) Signature {
				s.R = [32]byte{}
				return s
			},
		},
		{
			name: "zero s",
			mutate: func(s Signature) Signature {
				s.S = [32]byte{}
				return s
			},
		},
		{
			name: "high s",
			mutate: func(s Signature) Signature {
				highS := new(big.Int).Sub(secp256k1N, new(big.Int).SetBytes(s.S[:]))
				copy(s.S[:], common.LeftPadBytes(highS.Bytes(), 32))
				return s
			},
		},
		{
			name: "r not below curve order",
			mutate: func(s Signature) Signature {
				copy(s.R[:], common.LeftPadBytes(secp256k1N.Bytes(), 32))
				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := Recover(digest, tt.mutate(sig))
			require.Error(t, err)
			assert.ErrorIs(t, err, interfaces.ErrInvalidSignature)
			assert.Equal(t, interfaces.NoOwner, signer)
		})
	}
}

func TestParseSignature(t *testing.T) {
	raw := make([]byte, SignatureLength)
	for i := range raw {
		raw[i] = byte(i)
	}

	sig, err := ParseSignature(raw)
	require.NoError(t, err)
	assert.Equal(t, raw[:32], sig.R[:])
	assert.Equal(t, raw[32:64], sig.S[:])
	assert.Equal(t, raw[64], sig.V)
	assert.Equal(t, raw, sig.Bytes())

	parsed, err := ParseSignatureHex(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig, parsed)

	_, err = ParseSignature(raw[:64])
	assert.ErrorIs(t, err, interfaces.ErrInvalidSignature)

	_, err = ParseSignatureHex("0xzz")
	assert.ErrorIs(t, err, interfaces.ErrInvalidSignature)
}

func TestSignDigest_NilKey(t *testing.T) {
	_, err := SignDigest(common.Hash{}, nil)
	assert.Error(t, err)
}
