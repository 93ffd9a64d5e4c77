package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/clawboard/internal/notify"
	"github.com/user/clawboard/internal/scheduler"
	"github.com/user/clawboard/internal/server"
	"github.com/user/clawboard/internal/session"
	"github.com/user/clawboard/internal/state"
	"github.com/user/clawboard/internal/tokens"
	"github.com/user/clawboard/pkg/agent"
	"github.com/user/clawboard/pkg/agent/claude"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	estimator, err := tokens.New(cfg.Agent.Model)
	if err != nil {
		return fmt.Errorf("create token estimator: %w", err)
	}

	broker := server.NewBroker(slog.Default())

	// Notification sinks
	notifyReg := notify.NewRegistry()
	notifyTarget := ""
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram channel: %w", err)
		}
		notifyReg.Register(notify.TelegramPrefix, tg.Sink())
		notifyTarget = notify.TelegramPrefix + strconv.FormatInt(cfg.Telegram.ChatID, 10)
		slog.Info("telegram notifications enabled", "chat_id", cfg.Telegram.ChatID)
	} else {
		slog.Warn("telegram notifications disabled (no token or chat id)")
	}

	ctrl := session.NewController(session.Options{
		Transport:     claude.New(cfg.Agent.BaseURL),
		BudgetCeiling: cfg.BudgetCeiling,
		Model:         cfg.Agent.Model,
		TruncateLimit: cfg.TruncateLimit,
		Estimator:     estimator,
		OnChange: func(s state.State) {
			data, err := json.Marshal(s)
			if err != nil {
				slog.Error("failed to marshal snapshot", "error", err)
				return
			}
			broker.Publish("state", data)
		},
		OnFinish: func(r session.Result) {
			if notifyTarget == "" {
				return
			}
			if err := notifyReg.Notify(notifyTarget, notify.FormatResult(r)); err != nil {
				slog.Error("run notification failed", "error", err)
			}
		},
	})

	srv := server.NewServer(server.Options{
		Controller:       ctrl,
		Broker:           broker,
		APIKey:           cfg.Agent.APIKey,
		MaxTurns:         cfg.Agent.MaxTurns,
		WorkingDirectory: cfg.Agent.WorkingDirectory,
	})

	sched := scheduler.New(cfg.Schedules, func(name, prompt string) {
		err := ctrl.Start(agent.StartRequest{
			Prompt:           prompt,
			APIKey:           cfg.Agent.APIKey,
			Model:            cfg.Agent.Model,
			MaxTurns:         cfg.Agent.MaxTurns,
			WorkingDirectory: cfg.Agent.WorkingDirectory,
		})
		if err != nil {
			slog.Error("scheduled prompt failed to start", "name", name, "error", err)
		}
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "schedules", len(cfg.Schedules))

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("clawboard started",
			"listen", cfg.Listen,
			"agent_url", cfg.Agent.BaseURL,
			"model", cfg.Agent.Model,
			"budget_ceiling", cfg.BudgetCeiling,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		ctrl.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
