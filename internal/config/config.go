package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config holds all configurable parameters for the focus2earn client.
type Config struct {
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Wallet    WalletConfig    `yaml:"wallet"`

	// Minimum focus duration passed to startFocus, in seconds.
	MinimumFocusSeconds int64 `yaml:"minimum_focus_seconds"`

	// Receipt confirmation
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval"`
	ConfirmationDepth   uint64        `yaml:"confirmation_depth"`

	// Transaction builder
	BroadcastMaxRetries int `yaml:"broadcast_max_retries"`

	// Focus timer tick interval; 0 disables automatic ticking.
	TickInterval time.Duration `yaml:"tick_interval"`
}

// ChainConfig describes the single network the client talks to.
type ChainConfig struct {
	ChainID          int64         `yaml:"chain_id"`
	RPCURL           string        `yaml:"rpc_url"`
	DisplayName      string        `yaml:"display_name"`
	Ticker           string        `yaml:"ticker"`
	BlockExplorerURL string        `yaml:"block_explorer_url"`
	DialRetries      int           `yaml:"dial_retries"`
	DialRetryDelay   time.Duration `yaml:"dial_retry_delay"`
}

// ContractsConfig holds the two well-known contract addresses.
type ContractsConfig struct {
	FocusToEarn string `yaml:"focus_to_earn"`
	RewardToken string `yaml:"reward_token"`
}

// WalletConfig configures the custodial login provider.
type WalletConfig struct {
	Mnemonic        string `yaml:"-"`
	Passphrase      string `yaml:"-"`
	DerivationIndex uint32 `yaml:"derivation_index"`
}

// Default returns a Config populated with default values (Morph Holesky).
func Default() Config {
	return Config{
		Chain: ChainConfig{
			ChainID:          0xafa,
			RPCURL:           "https://rpc-holesky.morphl2.io",
			DisplayName:      "Morph Holesky",
			Ticker:           "ETH",
			BlockExplorerURL: "https://explorer-holesky.morphl2.io/",
			DialRetries:      3,
			DialRetryDelay:   2 * time.Second,
		},
		Contracts: ContractsConfig{
			FocusToEarn: "0xCD6372C8f10017295d80F9d66f80f6da61B35dc0",
			RewardToken: "0xEdb522211B4cab110B76B57b6D0691e297B4d921",
		},

		MinimumFocusSeconds: 10,

		ReceiptPollInterval: 1 * time.Second,
		ConfirmationDepth:   0,

		BroadcastMaxRetries: 3,

		TickInterval: 1 * time.Second,
	}
}

// Load reads a YAML file over the defaults and then applies the environment.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns a Config populated from environment variables,
// falling back to defaults for unset values.
func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FOCUS_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("FOCUS_CHAIN_ID"); v != "" {
		// accepts decimal or 0x-prefixed hex
		if n, err := strconv.ParseInt(v, 0, 64); err == nil {
			cfg.Chain.ChainID = n
		}
	}
	if v := os.Getenv("FOCUS_CONTRACT_ADDRESS"); v != "" {
		cfg.Contracts.FocusToEarn = v
	}
	if v := os.Getenv("FOCUS_TOKEN_ADDRESS"); v != "" {
		cfg.Contracts.RewardToken = v
	}
	if v := os.Getenv("FOCUS_MIN_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MinimumFocusSeconds = n
		}
	}
	if v := os.Getenv("FOCUS_RECEIPT_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReceiptPollInterval = d
		}
	}
	if v := os.Getenv("FOCUS_CONFIRMATION_DEPTH"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ConfirmationDepth = n
		}
	}
	if v := os.Getenv("FOCUS_BROADCAST_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BroadcastMaxRetries = n
		}
	}
	if v := os.Getenv("FOCUS_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TickInterval = d
		}
	}
	if v := os.Getenv("FOCUS_MNEMONIC"); v != "" {
		cfg.Wallet.Mnemonic = v
	}
	if v := os.Getenv("FOCUS_MNEMONIC_PASSPHRASE"); v != "" {
		cfg.Wallet.Passphrase = v
	}
	if v := os.Getenv("FOCUS_DERIVATION_INDEX"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Wallet.DerivationIndex = uint32(n)
		}
	}
}

// Validate checks the static network and contract settings.
func (c Config) Validate() error {
	var errs []error
	if c.Chain.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chain id must be positive, got %d", c.Chain.ChainID))
	}
	if u, err := url.Parse(c.Chain.RPCURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid rpc url %q", c.Chain.RPCURL))
	}
	if !common.IsHexAddress(c.Contracts.FocusToEarn) {
		errs = append(errs, fmt.Errorf("invalid focus contract address %q", c.Contracts.FocusToEarn))
	}
	if !common.IsHexAddress(c.Contracts.RewardToken) {
		errs = append(errs, fmt.Errorf("invalid reward token address %q", c.Contracts.RewardToken))
	}
	if c.MinimumFocusSeconds < 0 {
		errs = append(errs, fmt.Errorf("minimum focus seconds must not be negative, got %d", c.MinimumFocusSeconds))
	}
	return errors.Join(errs...)
}
