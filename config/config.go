package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"sol-swap/pkg/swap"
)

// Config holds the application configuration
type Config struct {
	RPCURL        string
	Commitment    string
	SkipPreflight bool

	JupiterBaseURL string
	HTTPTimeout    time.Duration

	NativeReserveLamports   uint64
	DefaultSlippageBps      uint16
	DefaultFeeLamports      uint64
	DefaultComputeUnitLimit uint64
	RouteDenylist           []string

	SubmitAttempts      int
	SubmitDelay         time.Duration
	SubmitBackoff       float64
	ConfirmationMode    string
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	ListenAddr string
	LogLevel   string
	LogFormat  string

	// Base58 secret key used by the interactive commands
	WalletPrivateKey string
}

// New returns a viper instance with every default registered
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("skip_preflight", false)
	v.SetDefault("jupiter_base_url", "https://lite-api.jup.ag/swap/v1")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("native_reserve_lamports", 4_500_000)
	v.SetDefault("default_slippage_bps", 100)
	v.SetDefault("default_fee_lamports", 1_000_000)
	v.SetDefault("default_compute_unit_limit", 200_000)
	v.SetDefault("route_denylist", []string{"obric"})
	v.SetDefault("submit_attempts", 3)
	v.SetDefault("submit_delay", time.Second)
	v.SetDefault("submit_backoff", 1.0)
	v.SetDefault("confirmation_mode", "finality")
	v.SetDefault("confirm_poll_interval", 2*time.Second)
	v.SetDefault("confirm_timeout", 60*time.Second)
	v.SetDefault("listen_addr", ":3030")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("wallet_private_key", "")

	// Read from environment variables
	v.SetEnvPrefix("SOL_SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from an optional config file and environment variables.
// An empty cfgFile searches for .sol-swap.yaml in $HOME and the working directory.
func Load(cfgFile string) (*Config, error) {
	v := New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(".sol-swap")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")

		// Read config file (optional)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper builds and validates a Config from v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		RPCURL:                  v.GetString("rpc_url"),
		Commitment:              v.GetString("commitment"),
		SkipPreflight:           v.GetBool("skip_preflight"),
		JupiterBaseURL:          v.GetString("jupiter_base_url"),
		HTTPTimeout:             v.GetDuration("http_timeout"),
		NativeReserveLamports:   v.GetUint64("native_reserve_lamports"),
		DefaultSlippageBps:      v.GetUint16("default_slippage_bps"),
		DefaultFeeLamports:      v.GetUint64("default_fee_lamports"),
		DefaultComputeUnitLimit: v.GetUint64("default_compute_unit_limit"),
		RouteDenylist:           v.GetStringSlice("route_denylist"),
		SubmitAttempts:          v.GetInt("submit_attempts"),
		SubmitDelay:             v.GetDuration("submit_delay"),
		SubmitBackoff:           v.GetFloat64("submit_backoff"),
		ConfirmationMode:        v.GetString("confirmation_mode"),
		ConfirmPollInterval:     v.GetDuration("confirm_poll_interval"),
		ConfirmTimeout:          v.GetDuration("confirm_timeout"),
		ListenAddr:              v.GetString("listen_addr"),
		LogLevel:                v.GetString("log_level"),
		LogFormat:               v.GetString("log_format"),
		WalletPrivateKey:        v.GetString("wallet_private_key"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required. Set SOL_SWAP_RPC_URL or add it to .sol-swap.yaml")
	}
	if c.JupiterBaseURL == "" {
		return fmt.Errorf("jupiter_base_url is required")
	}
	if c.SubmitAttempts < 1 {
		return fmt.Errorf("submit_attempts must be at least 1, got %d", c.SubmitAttempts)
	}
	if c.SubmitDelay < 0 || c.ConfirmTimeout < 0 {
		return fmt.Errorf("submit_delay and confirm_timeout must not be negative")
	}
	if _, err := swap.ParseConfirmationMode(c.ConfirmationMode); err != nil {
		return fmt.Errorf("confirmation_mode must be 'finality' or 'fire-and-forget': %w", err)
	}
	return nil
}

// Wallet parses the configured private key
func (c *Config) Wallet() (solana.PrivateKey, error) {
	if c.WalletPrivateKey == "" {
		return nil, fmt.Errorf("wallet_private_key is required. Set SOL_SWAP_WALLET_PRIVATE_KEY or add it to .sol-swap.yaml")
	}
	key, err := solana.PrivateKeyFromBase58(c.WalletPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet_private_key: %w", err)
	}
	return key, nil
}
