package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/knowledger/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, email, username, password string, role model.Role) (*model.User, error) {
	// 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}

	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmail 根据邮箱查找用户
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := conn(ctx, r.db).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	var user model.User
	err := conn(ctx, r.db).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByStripeCustomer 根据 Stripe 客户 ID 查找用户
func (r *UserRepository) FindByStripeCustomer(ctx context.Context, customerID string) (*model.User, error) {
	var user model.User
	err := conn(ctx, r.db).Where("stripe_customer_id = ?", customerID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckPassword 验证密码
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// UpdateRole 更新用户角色
func (r *UserRepository) UpdateRole(ctx context.Context, userID int, role model.Role) error {
	return conn(ctx, r.db).Model(&model.User{}).Where("id = ?", userID).Update("role", role).Error
}

// SetTwoFactor 开启/关闭双因素验证
func (r *UserRepository) SetTwoFactor(ctx context.Context, userID int, enabled bool) error {
	return conn(ctx, r.db).Model(&model.User{}).Where("id = ?", userID).Update("two_factor_enabled", enabled).Error
}

// SetStripeCustomer 绑定 Stripe 客户 ID
func (r *UserRepository) SetStripeCustomer(ctx context.Context, userID int, customerID string) error {
	return conn(ctx, r.db).Model(&model.User{}).Where("id = ?", userID).Update("stripe_customer_id", customerID).Error
}

// List 分页获取用户列表
func (r *UserRepository) List(ctx context.Context, page, limit int) ([]*model.User, Pagination, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	p := NewPagination(total, page, limit)

	var users []*model.User
	err := conn(ctx, r.db).Order("id ASC").Limit(limit).Offset(p.Offset()).Find(&users).Error
	return users, p, err
}

// Count 获取用户总数
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.User{}).Count(&count).Error
	return count, err
}

// Search 按邮箱或用户名模糊搜索
func (r *UserRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.User, error) {
	var users []*model.User
	like := likePattern(keyword)
	err := conn(ctx, r.db).
		Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ?", like, like).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// UsernameExists 用户名是否已被占用
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}
