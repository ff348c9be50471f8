package usecase

import (
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// 各usecaseで共通の部品
type Runtime struct {
	IDs           IDGenerator
	Clock         Clock
	Log           *zap.Logger
	Metrics       Metrics
	Events        EventPublisher
	Notifications repo.NotificationRepository
}

func (rt Runtime) effects() effectRunner {
	return effectRunner{
		notifications: rt.Notifications,
		events:        rt.Events,
		ids:           rt.IDs,
		log:           rt.Log,
		metrics:       rt.Metrics,
	}
}
