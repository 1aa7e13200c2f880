package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"quarkdapp/crypto"
)

const (
	// OperatorPassphraseEnv holds the passphrase of the operator keystore.
	OperatorPassphraseEnv = "QUARK_OPERATOR_PASSPHRASE"

	defaultTreasuryFunding = "1000000000"
)

type Config struct {
	ListenAddress        string `toml:"ListenAddress"`
	DataDir              string `toml:"DataDir"`
	LogFile              string `toml:"LogFile"`
	LogLevel             string `toml:"LogLevel"`
	Environment          string `toml:"Environment"`
	OperatorKeystorePath string `toml:"OperatorKeystorePath"`

	Owner           string `toml:"Owner"`
	Treasury        string `toml:"Treasury"`
	DepositWallet   string `toml:"DepositWallet"`
	PayoutThreshold int64  `toml:"PayoutThreshold"`
	Paused          bool   `toml:"Paused"`

	Genesis   Genesis   `toml:"Genesis"`
	Pricing   Pricing   `toml:"Pricing"`
	Kafka     Kafka     `toml:"Kafka"`
	Webhook   Webhook   `toml:"Webhook"`
	Telemetry Telemetry `toml:"Telemetry"`
	RPC       RPC       `toml:"RPC"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration whose owner key is generated into a
// keystore next to it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8545"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./quark-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.PayoutThreshold == 0 {
		c.PayoutThreshold = 1
	}
	if strings.TrimSpace(c.Kafka.ClientID) == "" {
		c.Kafka.ClientID = "quarkd"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	keystorePath := defaultKeystorePath(path)
	key, _, err := crypto.LoadOrCreateKeystore(keystorePath, os.Getenv(OperatorPassphraseEnv), crypto.StandardKeystore)
	if err != nil {
		return nil, err
	}
	operator := key.PubKey().Address().String()

	cfg := &Config{
		OperatorKeystorePath: keystorePath,
		Owner:                operator,
		Treasury:             operator,
		DepositWallet:        crypto.FormatPrincipal(DefaultDepositWallet()),
		Genesis:              Genesis{Alloc: map[string]string{operator: defaultTreasuryFunding}},
		Pricing:              Pricing{DefaultRate: "1"},
		RPC:                  RPC{RequestsPerMinute: 600, Burst: 60},
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultDepositWallet is the custody account holding escrowed deposits when
// none is configured. No private key exists for it.
func DefaultDepositWallet() [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte("quarkdapp/deposit-wallet"))[12:])
	return out
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
