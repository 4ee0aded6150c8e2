package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"job_board/internal/chatclient"
	"job_board/internal/config"
	"job_board/internal/domain"
	"job_board/pkg/logger"
)

// chatwatch это терминальный клиент переписки, показывает сообщения в реальном времени
// и отправляет строки из stdin
func main() {
	apiURL := flag.String("api", envOr("CHATWATCH_API_URL", "http://localhost:8080"), "API base URL")
	email := flag.String("email", os.Getenv("CHATWATCH_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("CHATWATCH_PASSWORD"), "login password")
	conversationID := flag.String("conversation", "", "conversation id to open")
	flag.Parse()

	if *email == "" || *password == "" || *conversationID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.Log.Level).With("service", "chatwatch")
	defer appLogger.Sync()

	relayURL, err := chatclient.WebsocketURL(cfg.Relay.ClientRelayURL())
	if err != nil {
		appLogger.Fatal("Invalid relay URL", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := chatclient.NewAPIClient(*apiURL)
	auth, err := api.Login(ctx, *email, *password)
	if err != nil {
		appLogger.Fatal("Login failed", "error", err)
	}

	session := chatclient.NewSession(api, chatclient.Options{
		RelayURL:     relayURL,
		SenderID:     auth.User.ID.String(),
		MaxAttempts:  cfg.Relay.ReconnectAttempts,
		InitialDelay: cfg.Relay.ReconnectDelay,
		MaxDelay:     cfg.Relay.ReconnectDelayMax,
		OnStateChange: func(state chatclient.State) {
			fmt.Printf("-- relay %s\n", state)
		},
		OnMessage: printMessage,
		Log:       appLogger,
	})
	session.Start(ctx)
	defer session.Stop()

	if err := session.Open(ctx, *conversationID); err != nil {
		appLogger.Fatal("Failed to open conversation", "error", err)
	}
	for _, m := range session.Messages() {
		printMessage(m)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/refresh":
				// Ручная перезагрузка, когда relay недоступен
				if err := session.Refresh(ctx); err != nil {
					appLogger.Warn("Refresh failed", "error", err)
					continue
				}
				for _, m := range session.Messages() {
					printMessage(m)
				}
				continue
			}
			if _, err := session.Send(ctx, line); err != nil {
				appLogger.Warn("Send failed", "error", err)
			}
		}
	}
}

func printMessage(m *domain.Message) {
	sender := m.SenderID.String()
	if m.Sender != nil && m.Sender.Name != "" {
		sender = m.Sender.Name
	}
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), sender, m.Content)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
