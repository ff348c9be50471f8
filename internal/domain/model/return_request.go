package model

import "time"

type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusPickedUp  ReturnStatus = "picked_up"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusProcessed ReturnStatus = "processed"
	ReturnStatusRefunded  ReturnStatus = "refunded"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusPending:   {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusPickedUp},
	ReturnStatusPickedUp:  {ReturnStatusReceived},
	ReturnStatusReceived:  {ReturnStatusProcessed, ReturnStatusRefunded},
	ReturnStatusProcessed: {ReturnStatusRefunded},
	ReturnStatusRejected:  {},
	ReturnStatusRefunded:  {},
}

// 未完了とみなす返品ステータス（同じ注文・明細で1件まで）
var OpenReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusPickedUp,
	ReturnStatusReceived,
}

func ParseReturnStatus(s string) (ReturnStatus, bool) {
	st := ReturnStatus(s)
	_, ok := returnTransitions[st]
	return st, ok
}

func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	for _, n := range returnTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// refund_amountは作成時に確定し、以後は再計算しない。
type ReturnRequest struct {
	ID           string       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      string       `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderItemID  *string      `gorm:"type:uuid;index" json:"order_item_id"`
	UserID       string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Reason       string       `gorm:"type:varchar(255);not null" json:"reason"`
	Description  string       `gorm:"type:text" json:"description"`
	Status       ReturnStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RefundAmount int64        `gorm:"not null" json:"refund_amount"`
	AdminNotes   string       `gorm:"type:text" json:"admin_notes"`

	ApprovedAt  *time.Time `json:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	PickedUpAt  *time.Time `json:"picked_up_at"`
	ReceivedAt  *time.Time `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	RefundedAt  *time.Time `json:"refunded_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ReturnRequest) TableName() string {
	return "returns"
}

// ステータスに対応する時刻を刻む
func (r *ReturnRequest) Stamp(status ReturnStatus, now time.Time) {
	switch status {
	case ReturnStatusApproved:
		r.ApprovedAt = &now
	case ReturnStatusRejected:
		r.RejectedAt = &now
	case ReturnStatusPickedUp:
		r.PickedUpAt = &now
	case ReturnStatusReceived:
		r.ReceivedAt = &now
	case ReturnStatusProcessed:
		r.ProcessedAt = &now
	case ReturnStatusRefunded:
		r.RefundedAt = &now
	}
}

func (r ReturnRequest) IsOpen() bool {
	for _, s := range OpenReturnStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// 対象が重なるか。どちらかが注文全体なら常に重なる
func (r ReturnRequest) Overlaps(orderItemID *string) bool {
	if r.OrderItemID == nil || orderItemID == nil {
		return true
	}
	return *r.OrderItemID == *orderItemID
}

// 新しい返品と重なる既存返品。却下済みは数えない
func ConflictingReturn(existing []ReturnRequest, orderItemID *string) (ReturnRequest, bool) {
	var closed *ReturnRequest
	for i := range existing {
		r := existing[i]
		if r.Status == ReturnStatusRejected || !r.Overlaps(orderItemID) {
			continue
		}
		if r.IsOpen() {
			return r, true
		}
		if closed == nil {
			closed = &existing[i]
		}
	}
	if closed != nil {
		return *closed, true
	}
	return ReturnRequest{}, false
}
