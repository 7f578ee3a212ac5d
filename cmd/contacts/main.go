package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/contacts/internal/config"
	"github.com/jask/contacts/internal/controller"
	"github.com/jask/contacts/internal/logging"
	"github.com/jask/contacts/internal/service"
	"github.com/jask/contacts/internal/tui"
)

func main() {
	if err := run(context.Background(), runProgram); err != nil {
		fmt.Fprintf(os.Stderr, "contacts: %v\n", err)
		os.Exit(1)
	}
}

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// run wires the app and hands the screen to ui. Deferred cleanup runs
// before any error reaches main.
func run(ctx context.Context, ui func(tea.Model) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, logFile, err := logging.Open(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logFile.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}

	keys := tui.NewKeyRegistry()
	if err := keys.ApplyOverrides(cfg.Keys); err != nil {
		return fmt.Errorf("keys: %w", err)
	}

	contacts := service.NewContactService(service.Options{Locale: cfg.Database.Locale, Logger: logger})
	if err := contacts.Initialize(ctx, cfg.Database.Path); err != nil {
		return fmt.Errorf("open contacts: %w", err)
	}
	defer contacts.Close()

	ctrl := controller.New(ctx, contacts, controller.Options{
		StrictUpdate:   cfg.Validation.StrictUpdate,
		SearchDistance: cfg.Search.MaxDistance,
		Logger:         logger,
	})
	defer ctrl.Close()

	if err := ui(tui.New(ctrl, cfg.UI.MessageTTL, keys)); err != nil {
		logger.Error("ui exited", "err", err)
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
