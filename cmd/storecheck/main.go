// storecheck probes the deployment's two external dependencies: the Redis
// session store and the Telegram Bot API. Handy before pointing a second bot
// process at the same store.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/tgbot"
)

func main() {
	redisURL := os.Getenv("REDIS_URL")
	botToken := os.Getenv("BOT_TOKEN")
	apiBase := os.Getenv("TELEGRAM_API_BASE")
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}

	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	store, err := duel.NewStore(redisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer store.Close()
	log.Println("redis ok")

	if botToken == "" {
		log.Println("BOT_TOKEN not set; skipping Telegram check")
		return
	}

	client := tgbot.NewClient(apiBase, botToken, tgbot.WithTimeout(8*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	me, err := client.GetMe(ctx)
	if err != nil {
		log.Fatalf("getMe error: %v", err)
	}
	log.Printf("telegram ok: bot=@%s id=%d", me.Username, me.ID)
}
