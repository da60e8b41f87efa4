// /internal/config/config.go
package config

import (
	"log"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
	SoundsDir    string `env:"SOUNDS_DIR" envDefault:"sounds"`
	StoragePath  string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"?"`

	RateLimitCooldownSec int      `env:"RATE_LIMIT_COOLDOWN_SEC" envDefault:"0"`
	UnlimitedUserIDs     []string `env:"UNLIMITED_USER_IDS" envSeparator:","`
	AllowedUserIDs       []string `env:"ALLOWED_USER_IDS" envSeparator:","`
	BannedUserIDs        []string `env:"BANNED_USER_IDS" envSeparator:","`
	RepeatLimit          int      `env:"REPEAT_LIMIT" envDefault:"3"`

	LeaveSuffix           string `env:"LEAVE_SUFFIX" envDefault:"_leave"`
	LeaveWhenAlone        bool   `env:"LEAVE_WHEN_ALONE" envDefault:"true"`
	ConnectPollIntervalMs int  `env:"CONNECT_POLL_INTERVAL_MS" envDefault:"100"`
	ConnectMaxPolls       int  `env:"CONNECT_MAX_POLLS" envDefault:"80"`

	APIAddr string `env:"API_ADDR" envDefault:":8080"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	return cfg
}
