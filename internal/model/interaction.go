package model

import (
	"time"
)

// History 播放进度，(user_id, item_id, type) 唯一
type History struct {
	ID           int         `json:"id" gorm:"primaryKey"`
	UserID       int         `json:"userId" gorm:"uniqueIndex:idx_user_history_item;not null"`
	ItemID       int         `json:"itemId" gorm:"uniqueIndex:idx_user_history_item;not null;index"`
	Type         ContentType `json:"type" gorm:"uniqueIndex:idx_user_history_item;type:varchar(16);not null"`
	Timestamp    float64     `json:"timestamp"` // 播放位置（秒）
	LastViewedAt time.Time   `json:"lastViewedAt" gorm:"index"`
}

// Rating 课程评分，(user_id, formation_id) 唯一
type Rating struct {
	ID          int       `json:"id" gorm:"primaryKey"`
	UserID      int       `json:"userId" gorm:"uniqueIndex:idx_user_rating;not null"`
	FormationID int       `json:"formationId" gorm:"uniqueIndex:idx_user_rating;not null;index"`
	Rating      int       `json:"rating" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment 评论
type Comment struct {
	ID        int         `json:"id" gorm:"primaryKey"`
	UserID    int         `json:"userId" gorm:"index;not null"`
	ItemID    int         `json:"itemId" gorm:"index:idx_comment_item;not null"`
	Type      ContentType `json:"type" gorm:"index:idx_comment_item;type:varchar(16);not null"`
	Content   string      `json:"content" gorm:"not null"`
	CreatedAt time.Time   `json:"createdAt"`
	User      *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification 站内通知
type Notification struct {
	ID        int         `json:"id" gorm:"primaryKey"`
	UserID    int         `json:"userId" gorm:"index;not null"`
	ItemID    int         `json:"itemId" gorm:"index:idx_notification_item"`
	Type      ContentType `json:"type" gorm:"index:idx_notification_item;type:varchar(16)"`
	Message   string      `json:"message"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MediaCleanupTask 待删除的远程媒体文件
type MediaCleanupTask struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"not null"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
