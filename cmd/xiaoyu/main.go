package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/xiaoyubot/xiaoyu/common/version"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/app"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/config"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/observability"
)

func main() {
	fmt.Printf("Xiaoyu AI Companion %s\n", version.Info())

	// A .env file is a development convenience; deployments set real
	// environment variables.
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	observability.Setup(cfg.LogLevel, cfg.LogFormat)

	bot, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Xiaoyu: %v\n", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Xiaoyu: %v\n", err)
		os.Exit(1)
	}
}
