package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/services"
)

type telegramValidator interface {
	Validate(ctx context.Context) (string, error)
}

type emailValidator interface {
	Validate(ctx context.Context) error
}

func main() {
	webhookURL := flag.String("webhook", os.Getenv("ALERT_WEBHOOK_URL"), "webhook URL to check")
	timeout := flag.Duration("timeout", 15*time.Second, "overall timeout for the API checks")
	flag.Parse()

	fmt.Println("🔧 Validating alert channel configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Warning: Could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var tg telegramValidator
	if cfg.Telegram.BotToken != "" {
		n, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.DefaultChatID, logger)
		if err != nil {
			fmt.Printf("❌ Failed to create Telegram bot: %v\n", err)
			os.Exit(1)
		}
		tg = n
	}

	var email emailValidator
	if cfg.Email.ResendAPIKey != "" {
		n, err := services.NewEmailNotifier(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.APIURL, *timeout)
		if err != nil {
			fmt.Printf("❌ Failed to create email notifier: %v\n", err)
			os.Exit(1)
		}
		email = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if failures := validateChannels(ctx, os.Stdout, tg, email, *webhookURL); failures > 0 {
		fmt.Printf("\n❌ %d alert channel check(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("\n🎉 All configured alert channels passed!")
}

// validateChannels checks each configured channel and returns the number of
// failed checks. Unconfigured channels are reported but do not fail.
func validateChannels(ctx context.Context, out io.Writer, tg telegramValidator, email emailValidator, webhookURL string) int {
	failures := 0

	if tg == nil {
		fmt.Fprintln(out, "⚠️  TELEGRAM_BOT_TOKEN is not configured")
	} else {
		fmt.Fprintln(out, "🔍 Testing Telegram Bot API connection...")
		username, err := tg.Validate(ctx)
		if err != nil {
			fmt.Fprintf(out, "❌ Telegram check failed: %v\n", err)
			failures++
		} else {
			fmt.Fprintf(out, "✅ Telegram bot reachable: @%s\n", username)
		}
	}

	if email == nil {
		fmt.Fprintln(out, "⚠️  RESEND_API_KEY is not configured")
	} else {
		fmt.Fprintln(out, "🔍 Testing Resend API key...")
		if err := email.Validate(ctx); err != nil {
			fmt.Fprintf(out, "❌ Resend check failed: %v\n", err)
			failures++
		} else {
			fmt.Fprintln(out, "✅ Resend API key accepted")
		}
	}

	if webhookURL == "" {
		fmt.Fprintln(out, "⚠️  No webhook URL given")
	} else if err := services.ValidateWebhookURL(webhookURL); err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		failures++
	} else {
		fmt.Fprintf(out, "✅ Webhook URL is valid: %s\n", webhookURL)
	}

	return failures
}
