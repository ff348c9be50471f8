package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

const (
	StepNotifyCustomer = "notify_customer"
	StepPublishEvent   = "publish_event"
)

// commit後に実行した1ステップの結果
type Effect struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// commit後の通知・イベント送信。失敗してもロールバックはしないが結果は返す。
type effectRunner struct {
	notifications repo.NotificationRepository
	events        EventPublisher
	ids           IDGenerator
	log           *zap.Logger
	metrics       Metrics
}

func (r effectRunner) run(ctx context.Context, step string, fields []zap.Field, fn func(context.Context) error) Effect {
	if err := fn(ctx); err != nil {
		r.log.Warn("post-commit step failed",
			append(fields, zap.String("step", step), zap.Error(err))...)
		r.metrics.EffectFailed(step)
		return Effect{Step: step, OK: false, Error: err.Error()}
	}
	return Effect{Step: step, OK: true}
}

func (r effectRunner) notify(ctx context.Context, n model.Notification, fields ...zap.Field) Effect {
	return r.run(ctx, StepNotifyCustomer, fields, func(ctx context.Context) error {
		n.ID = r.ids.NewID()
		return r.notifications.Create(ctx, n)
	})
}

func (r effectRunner) publish(ctx context.Context, typ, aggregateID string, at time.Time, payload any, fields ...zap.Field) Effect {
	return r.run(ctx, StepPublishEvent, fields, func(ctx context.Context) error {
		ev, err := model.NewEvent(typ, aggregateID, at, payload)
		if err != nil {
			return err
		}
		ev.ID = r.ids.NewID()
		return r.events.Publish(ctx, ev)
	})
}
