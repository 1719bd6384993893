package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

type purchaseCheckoutRequest struct {
	Type   model.ContentType `json:"type"`
	ItemID int               `json:"itemId"`
}

type subscriptionCheckoutRequest struct {
	Plan model.Plan `json:"plan"`
}

// CheckoutPurchase 创建单次购买支付会话
func (h *Handler) CheckoutPurchase(c *gin.Context) {
	var req purchaseCheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Payments.CheckoutPurchase(c.Request.Context(), middleware.GetUserID(c), req.Type, req.ItemID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, session)
}

// CheckoutSubscription 创建订阅支付会话
func (h *Handler) CheckoutSubscription(c *gin.Context) {
	var req subscriptionCheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.Payments.CheckoutSubscription(c.Request.Context(), middleware.GetUserID(c), req.Plan)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, session)
}

// Purchases 我的购买记录
func (h *Handler) Purchases(c *gin.Context) {
	list, err := h.Payments.Purchases(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// SubscriptionStatus 我的订阅
func (h *Handler) SubscriptionStatus(c *gin.Context) {
	status, err := h.Subscriptions.Status(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, status)
}

// CancelSubscription 到期后取消订阅
func (h *Handler) CancelSubscription(c *gin.Context) {
	sub, err := h.Subscriptions.Cancel(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "订阅将在到期后取消", sub)
}
