package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Game struct {
		TargetScore   int
		CPUDelayMinMS int
		CPUDelayMaxMS int
	}
	Net struct {
		TokenSecret string
	}
}

var C Config

// Load reads config/config.yaml. Every key has a default, so a missing
// file is not an error; a malformed one is.
func Load() error {
	viper.SetConfigFile("config/config.yaml")

	viper.SetDefault("server.addr", "127.0.0.1:8787")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("game.targetscore", 150)
	viper.SetDefault("game.cpudelayminms", 450)
	viper.SetDefault("game.cpudelaymaxms", 750)
	viper.SetDefault("net.tokensecret", "temperature-dev-secret")

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return viper.Unmarshal(&C)
}
