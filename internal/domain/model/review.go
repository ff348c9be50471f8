package model

import "time"

// 承認されるまで公開しない
type Review struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  string    `gorm:"type:uuid;not null;index" json:"product_id"`
	UserID     *string   `gorm:"type:uuid;index" json:"user_id"`
	AuthorName string    `gorm:"type:varchar(100)" json:"author_name"`
	Rating     int       `gorm:"not null" json:"rating"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	IsApproved bool      `gorm:"not null;default:false;index" json:"is_approved"`
	IPAddress  string    `gorm:"type:varchar(64)" json:"-"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
