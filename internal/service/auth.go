package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// RegisterInput 注册参数
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"omitempty,min=2,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResult 登录结果，TwoFactorRequired 时还需要验证码
type LoginResult struct {
	User              *model.User
	TwoFactorRequired bool
}

// AuthService 注册与登录
type AuthService struct {
	repos     *repository.Repositories
	twoFactor *TwoFactorService
}

func NewAuthService(repos *repository.Repositories, twoFactor *TwoFactorService) *AuthService {
	return &AuthService{repos: repos, twoFactor: twoFactor}
}

// Register 创建普通用户，未填写用户名时取邮箱 @ 前的部分
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	existing, err := s.repos.User.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.Conflict("该邮箱已被注册")
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = strings.SplitN(in.Email, "@", 2)[0]
	}
	username, err = s.freeUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.User.Create(ctx, in.Email, username, in.Password, model.RoleNormal)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Printf("[AuthService] 新用户注册: %d %s", user.ID, user.Email)
	return user, nil
}

func (s *AuthService) freeUsername(ctx context.Context, base string) (string, error) {
	name := base
	for i := 2; i < 100; i++ {
		taken, err := s.repos.User.UsernameExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
	return "", utils.Conflict("用户名已被占用")
}

// Login 校验密码；开启双因素验证的用户会收到邮件验证码
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repos.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.repos.User.CheckPassword(user, password) {
		return nil, utils.Unauthenticated("邮箱或密码错误")
	}
	if !user.TwoFactorEnabled {
		return &LoginResult{User: user}, nil
	}
	if err := s.twoFactor.Send(ctx, user); err != nil {
		return nil, err
	}
	return &LoginResult{User: user, TwoFactorRequired: true}, nil
}

// Me 当前用户
func (s *AuthService) Me(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.Unauthenticated("用户不存在")
	}
	return user, nil
}

// SeedAdmin 启动时创建第一个管理员；已存在的账号提升为 ADMIN
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	user, err := s.repos.User.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user != nil {
		if user.Role == model.RoleAdmin {
			return nil
		}
		log.Printf("[AuthService] 提升用户 %s 为管理员", email)
		return s.repos.User.UpdateRole(ctx, user.ID, model.RoleAdmin)
	}
	username, err := s.freeUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if _, err := s.repos.User.Create(ctx, email, username, password, model.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Printf("[AuthService] 已创建管理员 %s", email)
	return nil
}
