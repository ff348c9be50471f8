package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"

	"github.com/google/uuid"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ドメインイベントの送信先（Kafkaなど）
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

// keyごとの回数制限。falseなら拒否。
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// 計測
type Metrics interface {
	OrderTransition(from, to string)
	ReturnTransition(from, to string)
	InventoryAdjusted(kind string, n int)
	EffectFailed(step string)
	RateLimited(scope string)
}

type NopMetrics struct{}

func (NopMetrics) OrderTransition(string, string)  {}
func (NopMetrics) ReturnTransition(string, string) {}
func (NopMetrics) InventoryAdjusted(string, int)   {}
func (NopMetrics) EffectFailed(string)             {}
func (NopMetrics) RateLimited(string)              {}

// 認証済みの呼び出し元。UserIDが空なら未ログイン。
type Actor struct {
	UserID string
	Role   model.Role
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

func (a Actor) IsAdmin() bool {
	return a.Authenticated() && a.Role == model.RoleAdmin
}
