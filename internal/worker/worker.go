// Package worker consumes flagged cases from the event bus and runs the
// investigation pipeline on them.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/caracara/internal/agent"
	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/metrics"
)

// Worker subscribes to flagged-case events, investigates each case and
// persists the verdict.
type Worker struct {
	bus          domain.EventBus
	repo         domain.Repository
	investigator *agent.Investigator
	collector    *metrics.Collector

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates an investigation worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, investigator *agent.Investigator, collector *metrics.Collector) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:          bus,
		repo:         repo,
		investigator: investigator,
		collector:    collector,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start subscribes to the flagged-case topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicCaseFlagged, w.handleFlaggedCase)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("investigation worker started", "topic", domain.TopicCaseFlagged)
	return nil
}

// handleFlaggedCase investigates one flagged case end to end.
func (w *Worker) handleFlaggedCase(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var alert domain.Alert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		slog.Error("failed to parse flagged case", "message_id", msg.ID, "error", err)
		return err
	}

	verdict, err := w.investigator.Investigate(ctx, alert.Case)
	if err != nil {
		slog.Error("investigation failed", "case", alert.Case.ID, "error", err)
		return err
	}

	if w.repo != nil {
		if err := w.repo.SaveVerdict(ctx, verdict); err != nil {
			slog.Error("failed to save verdict", "case", alert.Case.ID, "error", err)
		}
	}

	if w.collector != nil {
		w.collector.RecordVerdict(verdict.Finding)
	}

	payload, _ := json.Marshal(verdict)
	if err := w.bus.Publish(ctx, domain.TopicCaseVerdict, payload); err != nil {
		slog.Error("failed to publish verdict", "case", alert.Case.ID, "error", err)
	}

	slog.Info("case investigated",
		"case", alert.Case.ID,
		"rule", alert.RuleID,
		"finding", verdict.Finding,
		"action", verdict.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe", "topic", sub.Topic(), "error", err)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("investigation worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
