package model

import (
	"time"
)

// Role 用户角色
type Role string

const (
	RoleNormal   Role = "NORMAL"
	RolePremium  Role = "PREMIUM"
	RoleFormator Role = "FORMATOR"
	RoleAdmin    Role = "ADMIN"
)

// Valid 判断角色是否合法
func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RolePremium, RoleFormator, RoleAdmin:
		return true
	}
	return false
}

// CanPublish 是否可以发布内容（讲师与管理员）
func (r Role) CanPublish() bool {
	return r == RoleAdmin || r == RoleFormator
}

// User 用户模型
type User struct {
	ID               int       `json:"id" gorm:"primaryKey"`
	Email            string    `json:"email" gorm:"unique;not null"`
	Username         string    `json:"username" gorm:"unique;not null"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role" gorm:"type:varchar(16);not null;default:NORMAL"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	StripeCustomerID string    `json:"-" gorm:"index"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       int
	Email    string
	Username string
	Role     string
}

// TwoFactorCode 双因素验证码（每个用户最多一条，重新下发时覆盖）
type TwoFactorCode struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	UserID    int       `json:"userId" gorm:"uniqueIndex;not null"`
	CodeHash  string    `json:"-" gorm:"not null"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
