package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/DomeLiquid/alphalend/core"
	"github.com/DomeLiquid/alphalend/wad"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type (
	Config struct {
		Owner          string `toml:"owner"`
		Distributor    string `toml:"distributor"`
		AlphaAssetId   string `toml:"alpha_asset_id"`
		ReservePercent string `toml:"reserve_percent"`

		Database Database `toml:"database"`
		Log      Log      `toml:"log"`
		HTTP     HTTP     `toml:"http"`
		Mixin    Mixin    `toml:"mixin"`
		Pools    []Pool   `toml:"pools"`
		// Prices seed the static oracle, asset id to decimal quote.
		Prices map[string]string `toml:"prices"`
	}

	Database struct {
		DSN string `toml:"dsn"`
	}

	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSize    int    `toml:"max_size"`
		MaxBackups int    `toml:"max_backups"`
		MaxAge     int    `toml:"max_age"`
		Compress   bool   `toml:"compress"`
	}

	HTTP struct {
		Listen string `toml:"listen"`
	}

	// Mixin reads listed asset metadata and, with oracle = "mixin", prices
	// from the mixin network.
	Mixin struct {
		Keystore    string `toml:"keystore"`
		Oracle      string `toml:"oracle"`
		PriceMaxAge string `toml:"price_max_age"`
	}

	// Pool rates are human readable decimals, e.g. "0.1" for 10%.
	Pool struct {
		AssetId            string `toml:"asset_id"`
		Symbol             string `toml:"symbol"`
		Name               string `toml:"name"`
		Precision          int32  `toml:"precision"`
		Active             bool   `toml:"active"`
		BaseBorrowRate     string `toml:"base_borrow_rate"`
		Slope1             string `toml:"slope1"`
		Slope2             string `toml:"slope2"`
		OptimalUtilization string `toml:"optimal_utilization"`
		CollateralPercent  string `toml:"collateral_percent"`
		LiquidationBonus   string `toml:"liquidation_bonus"`
	}
)

const (
	OracleStatic = "static"
	OracleMixin  = "mixin"
)

func Default() *Config {
	return &Config{
		ReservePercent: "0.05",
		Database:       Database{DSN: "file:alphalend.db"},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		HTTP: HTTP{Listen: ":9090"},
		Mixin: Mixin{
			Oracle:      OracleStatic,
			PriceMaxAge: "5m",
		},
	}
}

// Load reads a toml file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return errors.New("owner is required")
	}
	percent, err := c.ReservePercentWad()
	if err != nil {
		return err
	}
	if percent.Gt(wad.WAD) {
		return core.ErrInvalidReservePercent
	}
	switch c.Mixin.Oracle {
	case OracleStatic:
	case OracleMixin:
		if c.Mixin.Keystore == "" {
			return errors.New("mixin oracle needs a keystore")
		}
	default:
		return errors.Errorf("unknown oracle %q", c.Mixin.Oracle)
	}
	if _, err := c.Mixin.MaxAge(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Pools))
	for _, p := range c.Pools {
		if seen[p.AssetId] {
			return errors.Errorf("pool %s listed twice", p.AssetId)
		}
		seen[p.AssetId] = true
		config, err := p.PoolConfig()
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return errors.Wrapf(err, "pool %s", p.AssetId)
		}
	}
	return nil
}

func (c *Config) ReservePercentWad() (*uint256.Int, error) {
	if c.ReservePercent == "" {
		return core.DEFAULT_RESERVE_PERCENT.Clone(), nil
	}
	return wad.FromDecimalString(c.ReservePercent)
}

// MaxAge is how old a market quote may be. Zero accepts any age.
func (m Mixin) MaxAge() (time.Duration, error) {
	if m.PriceMaxAge == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.PriceMaxAge)
	if err != nil {
		return 0, errors.Wrapf(err, "mixin price_max_age")
	}
	return d, nil
}

// PriceWads converts the static price table to WAD.
func (c *Config) PriceWads() (map[string]*uint256.Int, error) {
	prices := make(map[string]*uint256.Int, len(c.Prices))
	for assetId, s := range c.Prices {
		price, err := wad.FromDecimalString(s)
		if err != nil {
			return nil, errors.Wrapf(err, "price of %s", assetId)
		}
		prices[assetId] = price
	}
	return prices, nil
}

func (p Pool) Asset() *core.Asset {
	return &core.Asset{
		AssetID:   p.AssetId,
		Symbol:    p.Symbol,
		Name:      p.Name,
		Precision: p.Precision,
	}
}

// PoolConfig parses the rate parameters. An empty optimal utilization means
// the default 0.8.
func (p Pool) PoolConfig() (core.PoolConfig, error) {
	if p.AssetId == "" || p.Symbol == "" {
		return core.PoolConfig{}, errors.New("pool asset_id and symbol are required")
	}
	fields := []struct {
		name  string
		value string
	}{
		{"base_borrow_rate", p.BaseBorrowRate},
		{"slope1", p.Slope1},
		{"slope2", p.Slope2},
		{"collateral_percent", p.CollateralPercent},
		{"liquidation_bonus", p.LiquidationBonus},
	}
	values := make([]*uint256.Int, len(fields))
	for i, f := range fields {
		v, err := wad.FromDecimalString(f.value)
		if err != nil {
			return core.PoolConfig{}, errors.Wrapf(err, "pool %s %s", p.AssetId, f.name)
		}
		values[i] = v
	}

	optimal := core.DEFAULT_OPTIMAL_UTILIZATION
	if p.OptimalUtilization != "" {
		var err error
		if optimal, err = wad.FromDecimalString(p.OptimalUtilization); err != nil {
			return core.PoolConfig{}, errors.Wrapf(err, "pool %s optimal_utilization", p.AssetId)
		}
	}
	return core.NewPoolConfigWithOptimal(optimal, values[0], values[1], values[2], values[3], values[4]), nil
}
