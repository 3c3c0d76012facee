// Package config loads the shop configuration shared by the kiosk, the
// verifier and the order desk. Values come from a YAML file and are then
// overridden by environment variables, optionally loaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/DroHadTo/Solanashop/svm"
)

var (
	ErrMissingMerchant = errors.New("merchant wallet is required")
	ErrInvalidMerchant = errors.New("merchant wallet is not a valid Solana address")
	ErrInvalidMint     = errors.New("spl token mint is not a valid Solana address")
	ErrInvalidPoll     = errors.New("poll settings must not be negative")
)

type Config struct {
	Cluster  string `yaml:"cluster"`
	RPCURL   string `yaml:"rpc_url"`
	Merchant string `yaml:"merchant"`
	SPLToken string `yaml:"spl_token"`
	Label    string `yaml:"label"`
	Message  string `yaml:"message"`
	Memo     string `yaml:"memo"`

	Poll PollConfig `yaml:"poll"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Order struct {
		Endpoint string        `yaml:"endpoint"`
		Delay    time.Duration `yaml:"delay"`
		Timeout  time.Duration `yaml:"timeout"`
		Addr     string        `yaml:"addr"`
	} `yaml:"order"`

	VerifierURL string `yaml:"verifier_url"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

type PollConfig struct {
	Interval         time.Duration `yaml:"interval"`
	MaxAttempts      int           `yaml:"max_attempts"`
	Deadline         time.Duration `yaml:"deadline"`
	AbortOnRejection bool          `yaml:"abort_on_rejection"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	c := &Config{
		Cluster: svm.ClusterDevnet,
		Label:   "Solana Shop",
		Message: "Thanks for your order!",
		Poll: PollConfig{
			Interval:    1200 * time.Millisecond,
			MaxAttempts: 100,
			Deadline:    2 * time.Minute,
		},
		VerifierURL: "http://localhost:8787",
	}
	c.Server.Addr = ":8787"
	c.Redis.TTL = 24 * time.Hour
	c.Order.Endpoint = "http://localhost:8788/orders"
	c.Order.Delay = time.Second
	c.Order.Timeout = 10 * time.Second
	c.Order.Addr = ":8788"
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}

// Load reads path (if not empty), then applies environment overrides. A .env
// file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.resolve()
	return c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Cluster, "SOLANA_CLUSTER")
	setString(&c.RPCURL, "SOLANA_RPC_URL")
	setString(&c.Merchant, "MERCHANT_WALLET")
	setString(&c.SPLToken, "SPL_TOKEN_MINT")
	setString(&c.Label, "SHOP_LABEL")
	setString(&c.Message, "SHOP_MESSAGE")
	setString(&c.Memo, "SHOP_MEMO")
	setString(&c.Server.Addr, "VERIFIER_ADDR")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Order.Endpoint, "ORDER_ENDPOINT")
	setString(&c.Order.Addr, "ORDERDESK_ADDR")
	setString(&c.VerifierURL, "VERIFIER_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("POLL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POLL_MAX_ATTEMPTS: %w", err)
		}
		c.Poll.MaxAttempts = n
	}
	for env, target := range map[string]*time.Duration{
		"POLL_INTERVAL": &c.Poll.Interval,
		"POLL_DEADLINE": &c.Poll.Deadline,
		"ORDER_DELAY":   &c.Order.Delay,
	} {
		if v := os.Getenv(env); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*target = d
		}
	}
	return nil
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

// resolve fills the RPC URL and mint from the cluster when they are unset
func (c *Config) resolve() {
	network, err := svm.GetNetworkConfig(c.Cluster)
	if err != nil {
		return
	}
	if c.RPCURL == "" {
		c.RPCURL = network.RPCURL
	}
	if c.SPLToken == "" {
		c.SPLToken = network.DefaultAsset.Address
	}
}

// Validate checks the configuration and returns warnings for settings that
// are legal but probably wrong for the deployment.
func (c *Config) Validate() (warnings []string, err error) {
	if !svm.IsValidNetwork(c.Cluster) {
		return nil, fmt.Errorf("%w: %s", svm.ErrUnsupportedNetwork, c.Cluster)
	}
	if c.Merchant == "" {
		return nil, ErrMissingMerchant
	}
	if !svm.ValidateSolanaAddress(c.Merchant) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMerchant, c.Merchant)
	}
	if !svm.ValidateSolanaAddress(c.SPLToken) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMint, c.SPLToken)
	}
	if c.Poll.Interval < 0 || c.Poll.MaxAttempts < 0 || c.Poll.Deadline < 0 {
		return nil, ErrInvalidPoll
	}

	if !svm.IsKnownMint(c.Cluster, c.SPLToken) {
		warnings = append(warnings, fmt.Sprintf("spl token %s is not the USDC mint for %s", c.SPLToken, c.Cluster))
	}
	return warnings, nil
}

// Decimals returns the precision of the configured mint
func (c *Config) Decimals() int {
	asset, err := svm.GetAssetInfo(c.Cluster, c.SPLToken)
	if err != nil {
		return svm.USDCDecimals
	}
	return asset.Decimals
}
