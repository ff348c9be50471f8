package model

import "time"

type BlogPostStatus string

const (
	BlogPostDraft     BlogPostStatus = "draft"
	BlogPostPublished BlogPostStatus = "published"
)

// reading_time / seo_score / readability_score / excerpt は保存時に計算する
type BlogPost struct {
	ID                 string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title              string         `gorm:"type:varchar(255);not null" json:"title"`
	Slug               string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Content            string         `gorm:"type:text;not null" json:"content"`
	Excerpt            string         `gorm:"type:text" json:"excerpt"`
	CoverImageURL      string         `gorm:"type:text" json:"cover_image_url"`
	AuthorID           string         `gorm:"type:uuid;index" json:"author_id"`
	Status             BlogPostStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PublishedAt        *time.Time     `gorm:"index" json:"published_at"`
	Tags               string         `gorm:"type:text" json:"tags"`
	MetaTitle          string         `gorm:"type:varchar(255)" json:"meta_title"`
	MetaDescription    string         `gorm:"type:text" json:"meta_description"`
	FocusKeyword       string         `gorm:"type:varchar(100)" json:"focus_keyword"`
	ReadingTimeMinutes int            `gorm:"not null;default:1" json:"reading_time_minutes"`
	SEOScore           int            `gorm:"column:seo_score;not null;default:0" json:"seo_score"`
	ReadabilityScore   float64        `gorm:"not null;default:0" json:"readability_score"`
	CreatedAt          time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
