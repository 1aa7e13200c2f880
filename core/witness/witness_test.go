package witness

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func addrOf(t *testing.T) ([20]byte, func(digest []byte) []byte) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	var addr [20]byte
	copy(addr[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return addr, func(digest []byte) []byte {
		sig, err := Sign(digest, key)
		require.NoError(t, err)
		return sig
	}
}

func TestRecoverSigners(t *testing.T) {
	digest := ethcrypto.Keccak256([]byte("operation"))
	owner, signOwner := addrOf(t)
	oracle, signOracle := addrOf(t)
	stranger, _ := addrOf(t)

	set, err := Recover(digest, [][]byte{signOwner(digest), signOracle(digest), signOwner(digest)})
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.True(t, set.CheckWitness(owner))
	require.True(t, set.CheckWitness(oracle))
	require.False(t, set.CheckWitness(stranger))
}

func TestRecoverAcceptsLegacyRecoveryID(t *testing.T) {
	digest := ethcrypto.Keccak256([]byte("legacy"))
	owner, sign := addrOf(t)
	sig := sign(digest)
	sig[64] += 27
	set, err := Recover(digest, [][]byte{sig})
	require.NoError(t, err)
	require.True(t, set.CheckWitness(owner))
}

func TestRecoverRejectsMalformed(t *testing.T) {
	digest := ethcrypto.Keccak256([]byte("x"))
	_, err := Recover(digest, [][]byte{make([]byte, 10)})
	require.Error(t, err)
	_, err = Recover(digest[:10], nil)
	require.Error(t, err)
}

func TestSignatureOverOtherDigestDoesNotAuthorize(t *testing.T) {
	owner, sign := addrOf(t)
	sig := sign(ethcrypto.Keccak256([]byte("deploy")))
	set, err := Recover(ethcrypto.Keccak256([]byte("updateOracle")), [][]byte{sig})
	require.NoError(t, err)
	require.False(t, set.CheckWitness(owner))
}

func TestWithCustody(t *testing.T) {
	var caller, treasury, other [20]byte
	caller[0], treasury[0], other[0] = 1, 2, 3
	w := WithCustody(NewSigners(caller), treasury)
	require.True(t, w.CheckWitness(caller))
	require.True(t, w.CheckWitness(treasury))
	require.False(t, w.CheckWitness(other))
	require.False(t, None.CheckWitness(caller))
	require.False(t, NewSigners([20]byte{}).CheckWitness([20]byte{}))
}
