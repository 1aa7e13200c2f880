// Package witness provides the authorization primitive consumed by the
// contract: "did principal P authorize this operation?".
package witness

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of a recoverable secp256k1 signature.
const SignatureLength = 65

var errBadSignature = errors.New("witness: malformed signature")

// Witness answers whether the current operation was authorized by addr.
type Witness interface {
	CheckWitness(addr [20]byte) bool
}

// Signers is the set of principals that authorized an operation.
type Signers map[[20]byte]struct{}

// NewSigners builds a signer set from the supplied principals.
func NewSigners(addrs ...[20]byte) Signers {
	set := make(Signers, len(addrs))
	for _, addr := range addrs {
		set[addr] = struct{}{}
	}
	return set
}

// CheckWitness implements Witness.
func (s Signers) CheckWitness(addr [20]byte) bool {
	if addr == ([20]byte{}) {
		return false
	}
	_, ok := s[addr]
	return ok
}

// Recover derives the signer set from signatures over digest. Every signature
// must be well formed; duplicates collapse into one signer.
func Recover(digest []byte, signatures [][]byte) (Signers, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("witness: digest must be 32 bytes, got %d", len(digest))
	}
	set := make(Signers, len(signatures))
	for i, sig := range signatures {
		if len(sig) != SignatureLength {
			return nil, fmt.Errorf("%w: signature %d has length %d", errBadSignature, i, len(sig))
		}
		normalized := append([]byte(nil), sig...)
		if normalized[64] >= 27 {
			normalized[64] -= 27
		}
		pub, err := ethcrypto.SigToPub(digest, normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", errBadSignature, i, err)
		}
		var addr [20]byte
		copy(addr[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
		set[addr] = struct{}{}
	}
	return set, nil
}

// Sign produces a recoverable signature over digest.
func Sign(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("witness: nil signing key")
	}
	return ethcrypto.Sign(digest, key)
}

type custody struct {
	inner    Witness
	accounts Signers
}

// WithCustody extends w with contract-controlled accounts. The contract
// authorizes movements out of its own custody accounts once the calling
// operation has passed its owner or oracle gate.
func WithCustody(w Witness, accounts ...[20]byte) Witness {
	return custody{inner: w, accounts: NewSigners(accounts...)}
}

func (c custody) CheckWitness(addr [20]byte) bool {
	if c.accounts.CheckWitness(addr) {
		return true
	}
	return c.inner != nil && c.inner.CheckWitness(addr)
}

// None authorizes nobody.
var None Witness = Signers(nil)
