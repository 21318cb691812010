package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mklimuk/sheet-pilot/pkg/db"
)

// ReportRunner generates the weekly report on demand.
type ReportRunner interface {
	Run(ctx context.Context, now time.Time) (string, error)
}

// Bot wraps the Telegram bot API and dependencies
type Bot struct {
	API    *tgbotapi.BotAPI
	Runner ReportRunner
	Repo   *db.Repository
	stopCh chan struct{}
}

// NewBot creates a new Telegram bot
func NewBot(token string, runner ReportRunner, repo *db.Repository) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	return &Bot{
		API:    api,
		Runner: runner,
		Repo:   repo,
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins polling for updates in a goroutine
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.API.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-b.stopCh:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					b.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	close(b.stopCh)
	b.API.StopReceivingUpdates()
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	switch command, _ := ParseCommand(msg.Text); command {
	case "/report":
		b.handleReport(msg)
	case "/latest":
		b.handleLatest(msg)
	case "/status":
		b.handleStatus(msg)
	}
}

func (b *Bot) handleReport(msg *tgbotapi.Message) {
	b.reply(msg, "주간보고 생성 중...")

	result, err := b.Runner.Run(context.Background(), time.Now())
	if err != nil {
		b.reply(msg, fmt.Sprintf("Error generating report: %v", err))
		return
	}
	b.reply(msg, result)
}

func (b *Bot) handleLatest(msg *tgbotapi.Message) {
	latest, err := b.Repo.GetLatestReport()
	if err != nil {
		b.reply(msg, fmt.Sprintf("Error loading report: %v", err))
		return
	}
	if latest == nil {
		b.reply(msg, "No reports yet. Use /report to generate one.")
		return
	}
	b.reply(msg, fmt.Sprintf("%s ~ %s\n\n%s", latest.PeriodStart, latest.PeriodEnd, TruncateSummary(latest.Summary)))
}

func (b *Bot) handleStatus(msg *tgbotapi.Message) {
	b.reply(msg, "Sheet Pilot is Online.")
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.API.Send(reply); err != nil {
		log.Printf("Failed to send Telegram reply: %v", err)
	}
}

// ParseCommand extracts the command and content from a message text.
// Returns the command (e.g. "/report", "/status") and the remaining content.
func ParseCommand(text string) (command, content string) {
	switch text {
	case "/report", "/latest", "/status":
		return text, ""
	}
	if strings.HasPrefix(text, "/report ") {
		return "/report", strings.TrimPrefix(text, "/report ")
	}
	return "", text
}

// TruncateSummary keeps replies inside Telegram's message limit.
func TruncateSummary(summary string) string {
	const limit = 3500
	if len(summary) <= limit {
		return summary
	}
	return summary[:limit] + "..."
}
