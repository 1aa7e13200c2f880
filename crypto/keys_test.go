package crypto

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	require.True(t, strings.HasPrefix(addr.String(), "qrk1"))

	raw, err := ParsePrincipal(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Raw(), raw)
	require.Equal(t, addr.String(), FormatPrincipal(raw))

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, addr.Raw(), restored.PubKey().Address().Raw())
}

func TestParsePrincipalHex(t *testing.T) {
	var want [20]byte
	for i := range want {
		want[i] = byte(i + 1)
	}
	got, err := ParsePrincipal("0x" + hex.EncodeToString(want[:]))
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = ParsePrincipal("0x0102")
	require.Error(t, err)
	_, err = ParsePrincipal("   ")
	require.Error(t, err)
}

func TestParsePrincipalRejectsForeignPrefix(t *testing.T) {
	var raw [20]byte
	foreign := NewAddress(AddressPrefix("cosmos"), raw[:]).String()
	_, err := ParsePrincipal(foreign)
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "owner.keystore")
	require.NoError(t, SaveToKeystoreWith(path, key, "secret", LightKeystore))

	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}

func TestLoadOrCreateKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operator.keystore")

	created, fresh, err := LoadOrCreateKeystore(path, "", LightKeystore)
	require.NoError(t, err)
	require.True(t, fresh)

	loaded, fresh, err := LoadOrCreateKeystore(path, "", LightKeystore)
	require.NoError(t, err)
	require.False(t, fresh)
	require.Equal(t, created.PubKey().Address().Raw(), loaded.PubKey().Address().Raw())
}
