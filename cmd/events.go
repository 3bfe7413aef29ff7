/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/contentdeck/apiserver/config"
	"github.com/contentdeck/apiserver/internal/logging"
	"github.com/contentdeck/apiserver/internal/mq"
	"github.com/contentdeck/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd tails the domain event channel and logs every event.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Log domain events published by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.MQ.Backend == "" {
			return errors.New("MQ_BACKEND is required")
		}

		logger, err := logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer queue.Close()

		logger.Info("listening for events", zap.String("channel", cfg.MQ.Channel))
		err = queue.Subscribe(ctx, cfg.MQ.Channel, logEvent(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func logEvent(logger *zap.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var event services.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// Malformed payloads are acked and dropped.
			logger.Warn("discarding malformed event", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		logger.Info("event",
			zap.String("id", msg.ID),
			zap.String("type", msg.Type()),
			zap.Int("user_id", event.UserID),
			zap.Int("item_id", event.ItemID),
			zap.String("title", event.Title),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
