package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/campusbooks/fee_ledger_app/internal/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// BalanceNotifier publishes a student's balance after a committed write, so
// dashboards subscribed to a student observe the final state shortly after
// any append, reversal, or recompute. Delivery is at-least-once; only
// post-commit values are ever published.
type BalanceNotifier interface {
	BalanceChanged(ctx context.Context, studentID string, balance decimal.Decimal)
}

// BalanceUpdate is the published payload.
type BalanceUpdate struct {
	StudentID string          `json:"studentID"`
	Balance   decimal.Decimal `json:"balance"`
}

// redisNotifier publishes balance updates on a per-student Redis channel.
type redisNotifier struct {
	client        *redis.Client
	channelPrefix string
}

// NewRedisBalanceNotifier creates a notifier backed by the given Redis
// client. Channel names are "<prefix>.<studentID>".
func NewRedisBalanceNotifier(client *redis.Client, channelPrefix string) BalanceNotifier {
	return &redisNotifier{client: client, channelPrefix: channelPrefix}
}

func (n *redisNotifier) BalanceChanged(ctx context.Context, studentID string, balance decimal.Decimal) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payload, err := json.Marshal(BalanceUpdate{StudentID: studentID, Balance: balance})
	if err != nil {
		logger.Error("Failed to marshal balance update", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return
	}

	channel := n.channelPrefix + "." + studentID
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		// Publishing is best-effort; the write is already committed.
		logger.Warn("Failed to publish balance update", slog.String("channel", channel), slog.String("error", err.Error()))
	}
}

// noopNotifier is used when Redis is not configured.
type noopNotifier struct{}

func (noopNotifier) BalanceChanged(context.Context, string, decimal.Decimal) {}

// NewNoopBalanceNotifier returns a notifier that discards updates.
func NewNoopBalanceNotifier() BalanceNotifier {
	return noopNotifier{}
}
