package config

// Genesis lists the balances credited on first start, keyed by address.
type Genesis struct {
	Alloc map[string]string `toml:"Alloc"`
}

// PairRate quotes one currency against the ledger unit.
type PairRate struct {
	Base  string `toml:"Base"`
	Quote string `toml:"Quote"`
	Rate  string `toml:"Rate"`
}

// Pricing configures the conversion rates used to size order deposits.
type Pricing struct {
	// DefaultRate applies to every pair without an explicit entry. Empty
	// disables the fallback.
	DefaultRate string     `toml:"DefaultRate"`
	Rates       []PairRate `toml:"Rates"`
	// MaxQuoteAgeSeconds rejects quotes older than this. Pair rates are
	// stamped when the node starts; zero disables the check.
	MaxQuoteAgeSeconds int64 `toml:"MaxQuoteAgeSeconds"`
}

// Kafka configures the committed-event sink. No brokers disables it.
type Kafka struct {
	Brokers  []string `toml:"Brokers"`
	Topic    string   `toml:"Topic"`
	ClientID string   `toml:"ClientID"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// RPC bounds client traffic.
type RPC struct {
	RequestsPerMinute   float64 `toml:"RequestsPerMinute"`
	Burst               int     `toml:"Burst"`
	SignerMaxRequests   uint32  `toml:"SignerMaxRequests"`
	SignerMaxValue      string  `toml:"SignerMaxValue"`
	SignerWindowSeconds uint32  `toml:"SignerWindowSeconds"`
}

// Webhook configures the signed HTTP event sink. An empty endpoint disables
// it; the HMAC secret is read from the environment variable SecretEnv.
type Webhook struct {
	Endpoint  string `toml:"Endpoint"`
	SecretEnv string `toml:"SecretEnv"`
}
