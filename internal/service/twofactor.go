package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	TwoFactorCodeTTL     = 10 * time.Minute
	TwoFactorMaxAttempts = 5
	twoFactorCodeDigits  = 6
)

// TwoFactorService 邮件验证码登录
type TwoFactorService struct {
	repos  *repository.Repositories
	mailer mail.Mailer
	now    func() time.Time
	// code 生成验证码，测试中可替换
	code func() (string, error)
}

func NewTwoFactorService(repos *repository.Repositories, mailer mail.Mailer) *TwoFactorService {
	return &TwoFactorService{repos: repos, mailer: mailer, now: time.Now, code: randomCode}
}

func randomCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", twoFactorCodeDigits, n.Int64()), nil
}

// Send 生成并发送验证码，覆盖之前未使用的验证码
func (s *TwoFactorService) Send(ctx context.Context, user *model.User) error {
	code, err := s.code()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now()
	err = s.repos.TwoFactor.Upsert(ctx, &model.TwoFactorCode{
		UserID:    user.ID,
		CodeHash:  string(hash),
		Attempts:  0,
		ExpiresAt: now.Add(TwoFactorCodeTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "登录验证码",
		Text:    fmt.Sprintf("您的登录验证码是 %s，%d 分钟内有效。", code, int(TwoFactorCodeTTL.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Printf("[TwoFactor] 发送验证码给用户 %d 失败: %v", user.ID, err)
		return utils.Upstream("验证码发送失败", err)
	}
	return nil
}

// Verify 校验验证码，成功后删除，返回对应用户
func (s *TwoFactorService) Verify(ctx context.Context, userID int, code string) (*model.User, error) {
	if userID == 0 {
		return nil, utils.Unauthenticated("登录会话已失效，请重新登录")
	}
	record, err := s.repos.TwoFactor.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, utils.Invalid("验证码不存在，请重新登录")
	}
	if !s.now().Before(record.ExpiresAt) {
		_ = s.repos.TwoFactor.DeleteByUser(ctx, userID)
		return nil, utils.Invalid("验证码已过期")
	}
	if record.Attempts >= TwoFactorMaxAttempts {
		return nil, utils.Invalid("尝试次数过多，请重新登录")
	}
	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		if err := s.repos.TwoFactor.IncrementAttempts(ctx, record.ID); err != nil {
			return nil, err
		}
		return nil, utils.InvalidField("code", "验证码错误")
	}

	if err := s.repos.TwoFactor.DeleteByUser(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.Unauthenticated("用户不存在")
	}
	return user, nil
}

// Toggle 开启或关闭双因素验证
func (s *TwoFactorService) Toggle(ctx context.Context, userID int, enabled bool) error {
	if err := s.repos.User.SetTwoFactor(ctx, userID, enabled); err != nil {
		return err
	}
	if !enabled {
		return s.repos.TwoFactor.DeleteByUser(ctx, userID)
	}
	return nil
}
