package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string
	RedisAddr  string
	CounterKey string
	Mode       string
	Seed       bool
	LogLevel   string
}

// Load reads the environment, after merging .env when it exists.
// Variables already set in the environment win over .env.
// An empty REDIS_ADDR is kept as is and selects the in-process store.
func Load(envFiles ...string) *Config {
	godotenv.Load(envFiles...)

	v := viper.New()
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("REDIS_ADDR", "redis-server:6379")
	v.SetDefault("COUNTER_KEY", "visits")
	v.SetDefault("COUNTER_MODE", "getset")
	v.SetDefault("SEED_COUNTER", true)
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		Port:       v.GetString("PORT"),
		RedisAddr:  v.GetString("REDIS_ADDR"),
		CounterKey: v.GetString("COUNTER_KEY"),
		Mode:       v.GetString("COUNTER_MODE"),
		Seed:       v.GetBool("SEED_COUNTER"),
		LogLevel:   v.GetString("LOG_LEVEL"),
	}
}
