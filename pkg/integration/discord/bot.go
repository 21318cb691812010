package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mklimuk/sheet-pilot/pkg/db"
)

// ReportRunner generates the weekly report on demand.
type ReportRunner interface {
	Run(ctx context.Context, now time.Time) (string, error)
}

// Bot wraps the Discord session and dependencies
type Bot struct {
	Session *discordgo.Session
	Runner  ReportRunner
	Repo    *db.Repository
}

// NewBot creates a new Discord bot
func NewBot(token string, runner ReportRunner, repo *db.Repository) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	bot := &Bot{
		Session: dg,
		Runner:  runner,
		Repo:    repo,
	}

	dg.AddHandler(bot.messageCreate)

	return bot, nil
}

// Start opens the websocket connection
func (b *Bot) Start() error {
	return b.Session.Open()
}

// Stop closes the websocket connection
func (b *Bot) Stop() error {
	return b.Session.Close()
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from self
	if m.Author.ID == s.State.User.ID {
		return
	}

	switch m.Content {
	case "!report":
		b.handleReport(s, m)
	case "!latest":
		b.handleLatest(s, m)
	case "!status":
		s.ChannelMessageSend(m.ChannelID, "🤖 Sheet Pilot is Online.")
	}
}

func (b *Bot) handleReport(s *discordgo.Session, m *discordgo.MessageCreate) {
	s.ChannelMessageSend(m.ChannelID, "주간보고 생성 중...")

	result, err := b.Runner.Run(context.Background(), time.Now())
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Error generating report: %v", err))
		return
	}
	s.ChannelMessageSend(m.ChannelID, "✅ "+result)
}

func (b *Bot) handleLatest(s *discordgo.Session, m *discordgo.MessageCreate) {
	latest, err := b.Repo.GetLatestReport()
	if err != nil {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Error loading report: %v", err))
		return
	}
	if latest == nil {
		s.ChannelMessageSend(m.ChannelID, "No reports yet. Use !report to generate one.")
		return
	}
	summary := latest.Summary
	// Discord caps messages at 2000 chars.
	if len(summary) > 1800 {
		summary = summary[:1800] + "..."
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("%s ~ %s\n\n%s", latest.PeriodStart, latest.PeriodEnd, summary))
}
