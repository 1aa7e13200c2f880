package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	configPrefix  = []byte("cfg/")
	orderPrefix   = []byte("order/")
	balancePrefix = []byte("balance/")
	metaPrefix    = []byte("meta/")

	deploymentField = []byte("deployment")
	genesisField    = []byte("genesis")
)

// namespacedKey hashes prefix||id so identifiers from different namespaces
// can never address the same record.
func namespacedKey(prefix, id []byte) []byte {
	buf := make([]byte, len(prefix)+len(id))
	copy(buf, prefix)
	copy(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

// ConfigKey returns the storage key of a configuration field.
func ConfigKey(field string) []byte { return namespacedKey(configPrefix, []byte(field)) }

// OrderKey returns the storage key of an order record.
func OrderKey(orderKey string) []byte { return namespacedKey(orderPrefix, []byte(orderKey)) }

// BalanceKey returns the storage key of an account balance.
func BalanceKey(addr [20]byte) []byte { return namespacedKey(balancePrefix, addr[:]) }

func metaKey(field []byte) []byte { return namespacedKey(metaPrefix, field) }
