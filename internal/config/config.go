// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"math/big"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/launchpad-tools/quoter/internal/curve"
)

type Config struct {
	RPCList     []string `mapstructure:"rpc_list"`
	SaleAddress string   `mapstructure:"sale_address"`

	// Curve geometry. Caps are whole coin counts, the raise is decimal ETH.
	SaleCapCoins   int64  `mapstructure:"sale_cap_coins"`
	QuadCapCoins   int64  `mapstructure:"quad_cap_coins"`
	TargetRaiseEth string `mapstructure:"target_raise_eth"`
	TotalSupply    int64  `mapstructure:"total_supply_coins"`

	SwapFeeBps  int64  `mapstructure:"swap_fee_bps"`
	SlippageBps int64  `mapstructure:"slippage_bps"`
	PriceDelay  int    `mapstructure:"price_delay"`
	Retries     int    `mapstructure:"retries"`
	EthUsdRate  string `mapstructure:"eth_usd_rate"`

	DebugLogging bool `mapstructure:"debug_logging"`
}

const (
	DefaultPriceDelay  = 500
	DefaultRetries     = 3
	DefaultSlippageBps = 100
	DefaultSwapFeeBps  = 30
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"price_delay":  DefaultPriceDelay,
		"retries":      DefaultRetries,
		"slippage_bps": DefaultSlippageBps,
		"swap_fee_bps": DefaultSwapFeeBps,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// CurveParameters calibrates the bonding curve described by the config. The
// decimal ETH raise must land on an integral number of wei.
func (cfg *Config) CurveParameters() (curve.Parameters, error) {
	raise, err := decimal.NewFromString(cfg.TargetRaiseEth)
	if err != nil {
		return curve.Parameters{}, errors.New("invalid target_raise_eth")
	}
	raiseWei := raise.Mul(decimal.New(1, 18))
	if !raiseWei.IsInteger() || !raiseWei.IsPositive() {
		return curve.Parameters{}, errors.New("target_raise_eth must be a positive wei-aligned amount")
	}
	return curve.Calibrate(coinsToUnits(cfg.SaleCapCoins), coinsToUnits(cfg.QuadCapCoins), raiseWei.BigInt())
}

// EthUsd reports the configured ETH/USD rate, zero when unset.
func (cfg *Config) EthUsd() decimal.Decimal {
	if cfg.EthUsdRate == "" {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(cfg.EthUsdRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (cfg *Config) TotalSupplyUnits() *big.Int {
	return coinsToUnits(cfg.TotalSupply)
}

func coinsToUnits(coins int64) *big.Int {
	units := big.NewInt(coins)
	return units.Mul(units, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.SaleAddress == "" {
		return errors.New("missing sale_address in configuration")
	}
	if !strings.HasPrefix(cfg.SaleAddress, "0x") || len(cfg.SaleAddress) != 42 {
		return errors.New("sale_address is not a 20-byte hex address")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.SaleCapCoins <= 0 {
		return errors.New("invalid sale_cap_coins")
	}
	if cfg.QuadCapCoins <= 0 || cfg.QuadCapCoins > cfg.SaleCapCoins {
		return errors.New("invalid quad_cap_coins")
	}
	if cfg.TargetRaiseEth == "" {
		return errors.New("missing target_raise_eth")
	}
	if cfg.TotalSupply < cfg.SaleCapCoins {
		return errors.New("total_supply_coins below sale_cap_coins")
	}
	if cfg.SwapFeeBps < 0 || cfg.SwapFeeBps >= curve.OneInBps {
		return errors.New("invalid swap_fee_bps")
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps >= curve.OneInBps {
		return errors.New("invalid slippage_bps")
	}
	if cfg.PriceDelay <= 0 {
		return errors.New("invalid price_delay")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("QUOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envSale := v.GetString("SALE_ADDRESS")
	if envSale != "" {
		cfg.SaleAddress = envSale
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
