package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/testutil"
	"github.com/user/knowledger/internal/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	mailer := mail.NewConsoleMailer("no-reply@test", "KnowLedger")
	svc := NewAuthService(repos, NewTwoFactorService(repos, mailer))

	u, err := svc.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleNormal, u.Role)

	// 用户名冲突时追加序号
	u2, err := svc.Register(ctx, RegisterInput{Email: "alice@other.org", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u2.Username)

	_, err = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret123"})
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "123"})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.True(t, utils.IsKind(err, utils.KindAuthentication))

	res, err := svc.Login(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.False(t, res.TwoFactorRequired)
	assert.Equal(t, u.ID, res.User.ID)
	assert.Empty(t, mailer.Sent())
}

func TestTwoFactorFlow(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	mailer := mail.NewConsoleMailer("no-reply@test", "KnowLedger")
	tf := NewTwoFactorService(repos, mailer)
	tf.code = func() (string, error) { return "123456", nil }
	svc := NewAuthService(repos, tf)

	u := testutil.User(t, repos, "bob", model.RoleNormal)
	require.NoError(t, tf.Toggle(ctx, u.ID, true))

	res, err := svc.Login(ctx, "bob@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, res.TwoFactorRequired)
	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "123456")

	_, err = tf.Verify(ctx, u.ID, "000000")
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	user, err := tf.Verify(ctx, u.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)

	// 验证码只能使用一次
	_, err = tf.Verify(ctx, u.ID, "123456")
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestTwoFactorLimits(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	tf := NewTwoFactorService(repos, mail.NewConsoleMailer("", ""))
	tf.code = func() (string, error) { return "654321", nil }
	u := testutil.User(t, repos, "carol", model.RoleNormal)

	require.NoError(t, tf.Send(ctx, u))
	for i := 0; i < TwoFactorMaxAttempts; i++ {
		_, err := tf.Verify(ctx, u.ID, "000000")
		require.Error(t, err)
	}
	_, err := tf.Verify(ctx, u.ID, "654321")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "尝试次数过多")

	// 重新下发后计数清零，过期后失效
	require.NoError(t, tf.Send(ctx, u))
	tf.now = func() time.Time { return time.Now().Add(TwoFactorCodeTTL + time.Minute) }
	_, err = tf.Verify(ctx, u.ID, "654321")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "已过期")
}

func TestSeedAdmin(t *testing.T) {
	repos := testutil.NewRepos(t)
	ctx := context.Background()
	svc := NewAuthService(repos, NewTwoFactorService(repos, mail.NewConsoleMailer("", "")))

	require.NoError(t, svc.SeedAdmin(ctx, "", ""))
	require.NoError(t, svc.SeedAdmin(ctx, "root@example.com", "rootpass"))
	require.NoError(t, svc.SeedAdmin(ctx, "root@example.com", "rootpass"))

	admin, err := repos.User.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	existing := testutil.User(t, repos, "dave", model.RoleNormal)
	require.NoError(t, svc.SeedAdmin(ctx, existing.Email, "whatever"))
	promoted, _ := repos.User.FindByID(ctx, existing.ID)
	assert.Equal(t, model.RoleAdmin, promoted.Role)
}
