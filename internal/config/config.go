package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string    `yaml:"http-port" env:"PORT" env-default:"3000"`
	AllowedOrigins []string  `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-default:"https://crosszero-game.netlify.app,http://localhost:3000,http://localhost:8000,http://127.0.0.1:3000,http://127.0.0.1:8000"`
	StaticDir      string    `yaml:"static-dir" env:"STATIC_DIR" env-default:"./web"`
	Room           Room      `yaml:"room"`
	Broadcast      Broadcast `yaml:"broadcast"`
	Redis          Redis     `yaml:"redis"`
}

type Room struct {
	TTL          time.Duration `yaml:"ttl" env:"ROOM_TTL" env-default:"1h"`
	ReapInterval time.Duration `yaml:"reap-interval" env:"ROOM_REAP_INTERVAL" env-default:"5m"`
}

type Broadcast struct {
	// Driver is either "local" or "redis".
	Driver string `yaml:"driver" env:"BROADCAST_DRIVER" env-default:"local"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file, falling back to the environment when the file is absent.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read config from environment: %w", err)
		}

		return config, nil
	}

	if err = cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
