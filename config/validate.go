package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"quarkdapp/core/genesis"
	"quarkdapp/crypto"
	"quarkdapp/native/common"
	"quarkdapp/native/dapp"
	"quarkdapp/native/pricing"
)

// Validate checks addresses, amounts and limits.
func (c *Config) Validate() error {
	accounts, err := c.Accounts()
	if err != nil {
		return err
	}
	if accounts.Owner == ([20]byte{}) {
		return fmt.Errorf("owner must not be the zero address")
	}
	if accounts.Treasury == accounts.DepositWallet {
		return fmt.Errorf("treasury and deposit wallet must differ")
	}
	if c.PayoutThreshold < 0 {
		return fmt.Errorf("payout threshold must not be negative")
	}
	if _, err := c.GenesisAlloc(); err != nil {
		return err
	}
	if c.Pricing.MaxQuoteAgeSeconds < 0 {
		return fmt.Errorf("pricing: max quote age must not be negative")
	}
	if strings.TrimSpace(c.Pricing.DefaultRate) != "" {
		if _, err := pricing.ParseRate(c.Pricing.DefaultRate); err != nil {
			return fmt.Errorf("pricing: default rate: %w", err)
		}
	}
	for i, pair := range c.Pricing.Rates {
		if strings.TrimSpace(pair.Base) == "" || strings.TrimSpace(pair.Quote) == "" {
			return fmt.Errorf("pricing: rate %d: base and quote required", i)
		}
		if _, err := pricing.ParseRate(pair.Rate); err != nil {
			return fmt.Errorf("pricing: rate %d: %w", i, err)
		}
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return fmt.Errorf("kafka: topic required when brokers are configured")
	}
	if strings.TrimSpace(c.Webhook.Endpoint) != "" && strings.TrimSpace(c.Webhook.SecretEnv) == "" {
		return fmt.Errorf("webhook: secret env required when endpoint is configured")
	}
	if c.RPC.RequestsPerMinute < 0 || c.RPC.Burst < 0 {
		return fmt.Errorf("rpc: rate limit must not be negative")
	}
	if _, err := c.SignerQuota(); err != nil {
		return err
	}
	return nil
}

// Accounts parses the contract principals.
func (c *Config) Accounts() (dapp.Accounts, error) {
	var out dapp.Accounts
	var err error
	if out.Owner, err = crypto.ParsePrincipal(c.Owner); err != nil {
		return out, fmt.Errorf("owner: %w", err)
	}
	if out.Treasury, err = crypto.ParsePrincipal(c.Treasury); err != nil {
		return out, fmt.Errorf("treasury: %w", err)
	}
	if out.DepositWallet, err = crypto.ParsePrincipal(c.DepositWallet); err != nil {
		return out, fmt.Errorf("deposit wallet: %w", err)
	}
	return out, nil
}

// GenesisAlloc parses the initial allocation.
func (c *Config) GenesisAlloc() (map[[20]byte]*big.Int, error) {
	return genesis.ParseAlloc(c.Genesis.Alloc)
}

// Pauses returns the operator pause view.
func (c *Config) Pauses() common.StaticPauses {
	return common.StaticPauses{dapp.ModuleName: c.Paused}
}

// MaxQuoteAge is the freshness window for conversion rates.
func (c *Config) MaxQuoteAge() time.Duration {
	return time.Duration(c.Pricing.MaxQuoteAgeSeconds) * time.Second
}

// SignerQuota returns the per-signer submission quota.
func (c *Config) SignerQuota() (common.Quota, error) {
	q := common.Quota{MaxRequests: c.RPC.SignerMaxRequests, WindowSeconds: c.RPC.SignerWindowSeconds}
	if value := strings.TrimSpace(c.RPC.SignerMaxValue); value != "" {
		amount, ok := new(big.Int).SetString(value, 10)
		if !ok || amount.Sign() < 0 {
			return q, fmt.Errorf("rpc: invalid signer max value %q", c.RPC.SignerMaxValue)
		}
		q.MaxValue = amount
	}
	return q, nil
}
