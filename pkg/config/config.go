package config

// Package config provides a reusable loader for the control plane's runtime
// profile. It mirrors the YAML files under config/.
//
// Version: v0.1.0

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"launchctl/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified runtime profile for the control plane.
type Config struct {
	Database struct {
		DSN             string `mapstructure:"dsn" json:"dsn"`
		MaxOpenConns    int    `mapstructure:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	} `mapstructure:"database" json:"database"`

	Chain struct {
		RPCURL            string `mapstructure:"rpc_url" json:"rpc_url"`
		BundleSubmitterURL string `mapstructure:"bundle_submitter_url" json:"bundle_submitter_url"`
	} `mapstructure:"chain" json:"chain"`

	IPFS struct {
		UploadEndpoint string `mapstructure:"upload_endpoint" json:"upload_endpoint"`
	} `mapstructure:"ipfs" json:"ipfs"`

	Fees struct {
		BasisPoints uint16 `mapstructure:"basis_points" json:"basis_points"`
	} `mapstructure:"fees" json:"fees"`

	Pools struct {
		StaticPoolCapLamports uint64 `mapstructure:"static_pool_cap_lamports" json:"static_pool_cap_lamports"`
		KeypairPoolLowWater   int    `mapstructure:"keypair_pool_low_water" json:"keypair_pool_low_water"`
	} `mapstructure:"pools" json:"pools"`

	Migrator struct {
		Parallelism         int           `mapstructure:"parallelism" json:"parallelism"`
		PollInterval        time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
		ConfirmAttempts     int           `mapstructure:"confirm_attempts" json:"confirm_attempts"`
		ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval" json:"confirm_poll_interval"`
		BackoffInitial      time.Duration `mapstructure:"backoff_initial" json:"backoff_initial"`
		BackoffCeiling      time.Duration `mapstructure:"backoff_ceiling" json:"backoff_ceiling"`
		ShutdownGrace       time.Duration `mapstructure:"shutdown_grace" json:"shutdown_grace"`
	} `mapstructure:"migrator" json:"migrator"`

	HTTP struct {
		ListenAddr     string        `mapstructure:"listen_addr" json:"listen_addr"`
		RequestBudget  time.Duration `mapstructure:"request_budget" json:"request_budget"`
	} `mapstructure:"http" json:"http"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads the base configuration file and merges the profile named by env
// on top of it. If env is empty, only the default profile is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up overrides from the process environment / .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the APP_RUN_MODE environment
// variable, defaulting to the "test" profile when unset.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("APP_RUN_MODE", "test"))
}
