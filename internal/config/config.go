package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

const (
	DriverJSON   = "json"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is read from an optional TOML file first; environment variables
// override whatever the file set.
type Config struct {
	AppPort string `toml:"app_port"`

	StoreDriver string `toml:"store_driver"`
	DataDir     string `toml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path"`

	MySQLHost string `toml:"mysql_host"`
	MySQLPort string `toml:"mysql_port"`
	MySQLDB   string `toml:"mysql_db"`
	MySQLUser string `toml:"mysql_user"`
	MySQLPass string `toml:"mysql_pass"`

	// RedisAddr empty disables the idempotency middleware.
	RedisAddr    string `toml:"redis_addr"`
	RedisDB      int    `toml:"redis_db"`
	IdempTTLSecs int    `toml:"idempotency_ttl_seconds"`

	InterestRate          float64 `toml:"system_interest_rate"`
	LenderStartingBalance float64 `toml:"lender_starting_balance"`

	AMQPURL     string `toml:"amqp_url"`
	NotifyQueue string `toml:"notify_queue"`

	MultichainHost     string `toml:"multichain_rpc_host"`
	MultichainPort     int    `toml:"multichain_rpc_port"`
	MultichainUser     string `toml:"multichain_rpc_user"`
	MultichainPassword string `toml:"multichain_rpc_password"`
	MultichainStream   string `toml:"multichain_stream"`

	SideEffectTimeoutSecs int  `toml:"side_effect_timeout_seconds"`
	MetricsEnabled        bool `toml:"metrics_enabled"`
}

func Default() *Config {
	return &Config{
		AppPort:               "8080",
		StoreDriver:           DriverJSON,
		DataDir:               "data",
		SQLitePath:            "data/ledger.db",
		MySQLHost:             "mysql",
		MySQLPort:             "3306",
		MySQLDB:               "ledger",
		MySQLUser:             "ledger",
		MySQLPass:             "ledger",
		IdempTTLSecs:          300,
		InterestRate:          10,
		LenderStartingBalance: 1000,
		NotifyQueue:           "loan_notifications",
		MultichainPort:        4360,
		MultichainStream:      "loan_stream",
		SideEffectTimeoutSecs: 5,
		MetricsEnabled:        true,
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// Load builds the config from defaults, then path (if non-empty), then the
// environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	c.AppPort = getenv("APP_PORT", c.AppPort)
	c.StoreDriver = getenv("STORE_DRIVER", c.StoreDriver)
	c.DataDir = getenv("DATA_DIR", c.DataDir)
	c.SQLitePath = getenv("SQLITE_PATH", c.SQLitePath)

	c.MySQLHost = getenv("MYSQL_HOST", c.MySQLHost)
	c.MySQLPort = getenv("MYSQL_PORT", c.MySQLPort)
	c.MySQLDB = getenv("MYSQL_DB", c.MySQLDB)
	c.MySQLUser = getenv("MYSQL_USER", c.MySQLUser)
	c.MySQLPass = getenv("MYSQL_PASS", c.MySQLPass)

	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getenvInt("REDIS_DB", c.RedisDB)
	c.IdempTTLSecs = getenvInt("IDEMPOTENCY_TTL_SECONDS", c.IdempTTLSecs)

	c.InterestRate = getenvFloat("SYSTEM_INTEREST_RATE", c.InterestRate)
	c.LenderStartingBalance = getenvFloat("LENDER_STARTING_BALANCE", c.LenderStartingBalance)

	c.AMQPURL = getenv("AMQP_URL", c.AMQPURL)
	c.NotifyQueue = getenv("NOTIFY_QUEUE", c.NotifyQueue)

	c.MultichainHost = getenv("MULTICHAIN_RPC_HOST", c.MultichainHost)
	c.MultichainPort = getenvInt("MULTICHAIN_RPC_PORT", c.MultichainPort)
	c.MultichainUser = getenv("MULTICHAIN_RPC_USER", c.MultichainUser)
	c.MultichainPassword = getenv("MULTICHAIN_RPC_PASSWORD", c.MultichainPassword)
	c.MultichainStream = getenv("MULTICHAIN_STREAM", c.MultichainStream)

	c.SideEffectTimeoutSecs = getenvInt("SIDE_EFFECT_TIMEOUT_SECONDS", c.SideEffectTimeoutSecs)
	c.MetricsEnabled = getenvBool("METRICS_ENABLED", c.MetricsEnabled)
	return c, nil
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.StoreDriver {
	case DriverJSON:
		if c.DataDir == "" {
			return errors.New("missing DATA_DIR for json store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH for sqlite store")
		}
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want json, mysql or sqlite)", c.StoreDriver)
	}
	if c.InterestRate <= 0 {
		return fmt.Errorf("SYSTEM_INTEREST_RATE must be > 0, got %v", c.InterestRate)
	}
	if c.LenderStartingBalance < 0 {
		return fmt.Errorf("LENDER_STARTING_BALANCE must be >= 0, got %v", c.LenderStartingBalance)
	}
	if c.RedisAddr != "" && c.IdempTTLSecs <= 0 {
		return errors.New("IDEMPOTENCY_TTL_SECONDS must be > 0")
	}
	if c.MultichainHost != "" && (c.MultichainPort <= 0 || c.MultichainPort > 65535) {
		return fmt.Errorf("invalid MULTICHAIN_RPC_PORT %d", c.MultichainPort)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) Rate() decimal.Decimal { return decimal.NewFromFloat(c.InterestRate).Round(2) }

func (c *Config) LenderBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.LenderStartingBalance).Round(2)
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) SideEffectTimeout() time.Duration {
	return time.Duration(c.SideEffectTimeoutSecs) * time.Second
}
