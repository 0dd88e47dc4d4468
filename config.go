package studyhall

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	BotName     string
	BotToken    string
}

func LoadConfig() (Config, error) {
	isProd := flag.Bool("p", false, "is production environment")
	flag.Parse()
	if *isProd {
		_ = godotenv.Load(".env")
	} else {
		_ = godotenv.Load(".env.dev")
	}

	config := Config{
		DatabaseURL: os.Getenv("STUDYHALL_DB_PATH"),
		BotName:     os.Getenv("STUDYHALL_BOT_NAME"),
		BotToken:    os.Getenv("STUDYHALL_BOT_TOKEN"),
	}

	if config.BotToken == "" {
		return Config{}, fmt.Errorf("required environment variable: STUDYHALL_BOT_TOKEN")
	}

	if config.BotName == "" {
		config.BotName = "Studyhall"
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = "studyhall.sqlite"
	}

	return config, nil
}
