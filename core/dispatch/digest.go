package dispatch

import (
	"encoding/json"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// CanonicalArgs renders the typed arguments of call as JSON. Field order
// follows the argument struct, so semantically equal requests produce equal
// bytes.
func CanonicalArgs(call Call) ([]byte, error) {
	if !call.Op.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, call.Op)
	}
	if call.Args == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(call.Args)
}

// Digest returns keccak256(rlp([operation, canonical args])), the message
// signed by every principal authorizing the call.
func Digest(call Call) ([]byte, error) {
	args, err := CanonicalArgs(call)
	if err != nil {
		return nil, err
	}
	encoded, err := rlp.EncodeToBytes([]interface{}{call.Op.String(), args})
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(encoded), nil
}
