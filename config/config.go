package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Game       GameConfig       `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// SettlementConfig covers the signed bridge to the platform wallet.
type SettlementConfig struct {
	PlatformURL string `mapstructure:"platform_url"`
	APIKey      string `mapstructure:"api_key"`
	Secret      string `mapstructure:"secret"`
	// MinRetainedBalance and WelcomeBonus are display values, not scaled.
	MinRetainedBalance float64 `mapstructure:"min_retained_balance"`
	WelcomeBonus       float64 `mapstructure:"welcome_bonus"`
}

type GameConfig struct {
	MaxSeats        int `mapstructure:"max_seats"`
	FlushIntervalMS int `mapstructure:"flush_interval_ms"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("settlement.min_retained_balance", 500)
	viper.SetDefault("settlement.welcome_bonus", 500)
	viper.SetDefault("game.max_seats", 4)
	viper.SetDefault("game.flush_interval_ms", 10000)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
