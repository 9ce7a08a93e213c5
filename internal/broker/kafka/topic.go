package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"brokerbench/internal/config"
)

// EnsureTopic creates cfg.Topic unless it already exists.
func EnsureTopic(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	opts, err := clientOpts(cfg, logger)
	if err != nil {
		return err
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer client.Close()

	admin := kadm.NewClient(client)

	topics, err := admin.ListTopics(ctx, cfg.Topic)
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}
	// Unknown topics come back as details carrying an error.
	if d, ok := topics[cfg.Topic]; ok && d.Err == nil {
		logger.Debug("topic exists", "topic", cfg.Topic)
		return nil
	}

	resp, err := admin.CreateTopic(ctx, cfg.Partitions, cfg.ReplicationFactor, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", cfg.Topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", cfg.Topic, resp.Err)
	}

	logger.Info("created topic",
		"topic", cfg.Topic,
		"partitions", cfg.Partitions,
		"replication_factor", cfg.ReplicationFactor,
	)
	return nil
}
