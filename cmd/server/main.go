package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/ai"
	"github.com/mklimuk/sheet-pilot/pkg/api"
	"github.com/mklimuk/sheet-pilot/pkg/automation"
	"github.com/mklimuk/sheet-pilot/pkg/config"
	"github.com/mklimuk/sheet-pilot/pkg/db"
	"github.com/mklimuk/sheet-pilot/pkg/integration/discord"
	"github.com/mklimuk/sheet-pilot/pkg/integration/drive"
	"github.com/mklimuk/sheet-pilot/pkg/integration/telegram"
	"github.com/mklimuk/sheet-pilot/pkg/report"
	"github.com/mklimuk/sheet-pilot/pkg/sheet"
)

// pollerSource serves the cached spreadsheet snapshot when one exists and
// falls back to a direct fetch right after startup, before the first poll
// has landed.
type pollerSource struct {
	poller  *sheet.Poller
	fetcher sheet.Fetcher
	url     string
}

func (s *pollerSource) Rows(ctx context.Context) ([]sheet.Row, error) {
	rows, fetchedAt := s.poller.Rows()
	if !fetchedAt.IsZero() {
		return rows, nil
	}
	return s.fetcher.FetchRows(ctx, s.url)
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Sheet.URL == "" {
		log.Fatalf("sheet.url is not set in %s", *configPath)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", cfg.Timezone, err)
	}

	ctx := context.Background()

	// Initialize DB
	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	repo := db.NewRepository(database)

	// Initialize AI Client
	var generator ai.Generator
	var chatter ai.Chatter
	switch cfg.AI.Provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			log.Fatal("OPENAI_API_KEY environment variable is required when using openai provider")
		}
		client := ai.NewOpenAIClient(key, cfg.AI.Model)
		generator, chatter = client, client
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required when using gemini provider")
		}
		client, err := ai.NewClient(ctx, key, cfg.AI.Model)
		if err != nil {
			log.Fatalf("Failed to create AI client: %v", err)
		}
		defer client.Close()
		generator, chatter = client, client
	default:
		log.Fatalf("Unknown AI provider: %s", cfg.AI.Provider)
	}

	// Initialize Sheet Fetcher
	var fetcher sheet.Fetcher
	switch cfg.Sheet.Mode {
	case "api":
		apiFetcher, err := sheet.NewAPIFetcher(ctx, cfg.Sheet.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to create Sheets API fetcher: %v", err)
		}
		fetcher = apiFetcher
	default:
		fetcher = sheet.NewCSVFetcher()
	}

	pollInterval, err := time.ParseDuration(cfg.Sheet.Poll)
	if err != nil {
		log.Fatalf("Invalid sheet.poll interval %q: %v", cfg.Sheet.Poll, err)
	}
	poller := sheet.NewPoller(fetcher, cfg.Sheet.URL, pollInterval)
	poller.Start()
	defer poller.Stop()

	// Initialize Report Service
	engine := report.NewTemplateEngine(cfg.Report.TemplateDir)
	reportSvc := report.NewService(repo, generator, engine, cfg.Report.OutputDir)
	if cfg.Report.GitArchive {
		reportSvc = reportSvc.WithArchive(report.NewArchive(cfg.Report.OutputDir))
	}

	// Initialize Drive Integration (Optional)
	if d := cfg.Report.Drive; d != nil && d.CredentialsFile != "" {
		if d.BackupFolderID != "" {
			svc, err := drive.NewService(ctx, d.CredentialsFile, d.BackupFolderID)
			if err != nil {
				log.Printf("Failed to create Drive backup service: %v", err)
			} else {
				backup := drive.NewBackup(svc, cfg.Report.OutputDir, time.Hour)
				backup.Start()
				defer backup.Stop()
				reportSvc = reportSvc.WithUploader(backup)
				log.Println("Drive backup started")
			}
		}
		if d.TemplateFolderID != "" && cfg.Report.TemplateDir != "" {
			svc, err := drive.NewService(ctx, d.CredentialsFile, d.TemplateFolderID)
			if err != nil {
				log.Printf("Failed to create Drive template sync: %v", err)
			} else {
				sync := drive.NewTemplateSync(svc, cfg.Report.TemplateDir, time.Hour)
				sync.Start()
				defer sync.Stop()
				log.Println("Drive template sync started")
			}
		}
	}

	source := &pollerSource{poller: poller, fetcher: fetcher, url: cfg.Sheet.URL}
	runner := report.NewWeeklyRunner(reportSvc, source, cfg.Calendar.Mapping.StartDateField).
		WithTemplate(cfg.Report.Template).
		WithPrompt(cfg.Report.Prompt)

	// Initialize Automation Service
	autoSvc := automation.NewService(repo, time.Minute, 8)
	autoSvc.RegisterAction("generate_report", func(ctx context.Context, def db.AutomationDefinition) (string, error) {
		return runner.Run(ctx, time.Now().In(loc))
	})
	autoSvc.Start()
	defer autoSvc.Stop()

	// Initialize Router
	router := api.NewRouter(repo, generator, chatter, fetcher, runner, cfg.Calendar.Mapping, cfg.Calendar.MaxLanes)

	// Initialize Telegram Bot (Optional)
	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	if telegramToken != "" {
		tgBot, err := telegram.NewBot(telegramToken, runner, repo)
		if err != nil {
			log.Printf("Failed to create Telegram bot: %v", err)
		} else {
			if err := tgBot.Start(); err != nil {
				log.Printf("Failed to start Telegram bot: %v", err)
			} else {
				log.Println("Telegram Bot started")
				defer tgBot.Stop()
			}
		}
	}

	// Initialize Discord Bot (Optional)
	discordToken := os.Getenv("DISCORD_TOKEN")
	if discordToken != "" {
		bot, err := discord.NewBot(discordToken, runner, repo)
		if err != nil {
			log.Printf("Failed to create Discord bot: %v", err)
		} else {
			if err := bot.Start(); err != nil {
				log.Printf("Failed to start Discord bot: %v", err)
			} else {
				log.Println("Discord Bot started")
				defer bot.Stop()
			}
		}
	}

	server := &http.Server{Addr: cfg.Listen, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Listen)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	}
}
