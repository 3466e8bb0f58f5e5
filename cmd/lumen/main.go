package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumen-reader/lumen/internal/ai"
	"github.com/lumen-reader/lumen/internal/app"
	"github.com/lumen-reader/lumen/internal/config"
	"github.com/lumen-reader/lumen/internal/logging"
	"github.com/lumen-reader/lumen/internal/miniflux"
	"github.com/lumen-reader/lumen/internal/sched"
	"github.com/lumen-reader/lumen/internal/session"
	"github.com/lumen-reader/lumen/internal/storage"
	"github.com/lumen-reader/lumen/internal/tui"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}

	client := miniflux.NewClient(cfg.APIBaseURL, cfg.APIToken, nil)
	aiClient := ai.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.AIModel, cfg.AITemperature)
	service := app.NewService(client, repo)

	seed, err := service.ListCached(ctx, app.DefaultCacheLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load cached articles: %v\n", err)
	}

	prefs, err := service.LoadPreferences(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load preferences (%v), using defaults\n", err)
		prefs = app.DefaultPreferences()
	}

	notifier := tui.NewNotifier()

	tracker := session.NewReadTracker(client)
	tracker.OnMarked = notifier.MarkedRead
	defer tracker.Close()

	controller := session.NewController(client, session.Config{
		PageLimit:    cfg.PageLimit,
		PollInterval: time.Minute,
	})
	defer controller.Close()

	scheduler := sched.New(repo, aiClient)
	scheduler.OnGenerated = func(json.RawMessage) { notifier.DigestGenerated() }
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go scheduler.Run(schedCtx)

	model := tui.NewModel(tui.Options{
		Service:   service,
		Session:   controller,
		Tracker:   tracker,
		Assistant: aiClient,
		Notifier:  notifier,
		Prefs:     prefs,
		Seed:      seed,
	})

	controller.SetScope(session.Scope{})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
