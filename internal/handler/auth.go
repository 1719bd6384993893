package handler

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/utils"
)

const (
	sessionUserInfo   = "userinfo"
	sessionPending2FA = "pending_2fa_user"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// signIn 签发 JWT 并写入 Session
func (h *Handler) signIn(c *gin.Context, user *model.User) (string, error) {
	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role, h.Config.AppSecret, h.Config.JWTExpiry)
	if err != nil {
		return "", err
	}
	middleware.SetTokenCookie(c, token, h.Config.JWTExpiry)

	session := sessions.Default(c)
	session.Delete(sessionPending2FA)
	session.Set(sessionUserInfo, model.SessionUser{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     string(user.Role),
	})
	_ = session.Save()
	return token, nil
}

// Register 注册并直接登录
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	token, err := h.signIn(c, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, gin.H{"user": user, "token": token})
}

// Login 登录；开启双因素验证时只返回 twoFactorRequired
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	if res.TwoFactorRequired {
		session := sessions.Default(c)
		session.Set(sessionPending2FA, res.User.ID)
		_ = session.Save()
		utils.SuccessWithMessage(c, "验证码已发送到邮箱", gin.H{"twoFactorRequired": true})
		return
	}

	token, err := h.signIn(c, res.User)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, gin.H{"user": res.User, "token": token})
}

// VerifyTwoFactor 校验邮件验证码后登录
func (h *Handler) VerifyTwoFactor(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	session := sessions.Default(c)
	userID, _ := session.Get(sessionPending2FA).(int)

	user, err := h.TwoFactor.Verify(c.Request.Context(), userID, req.Code)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	token, err := h.signIn(c, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, gin.H{"user": user, "token": token})
}

// ToggleTwoFactor 开启/关闭双因素验证
func (h *Handler) ToggleTwoFactor(c *gin.Context) {
	var req toggleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.TwoFactor.Toggle(c.Request.Context(), middleware.GetUserID(c), req.Enabled); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, gin.H{"twoFactorEnabled": req.Enabled})
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()

	utils.SuccessWithMessage(c, "已退出登录", nil)
}

// Me 当前用户
func (h *Handler) Me(c *gin.Context) {
	user, err := h.Auth.Me(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, user)
}
