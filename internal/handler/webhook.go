package handler

import (
	"encoding/json"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/user/knowledger/internal/utils"
)

const maxWebhookBody = 64 << 10

// StripeWebhook 接收 Stripe 回调；处理失败返回 500 让 Stripe 重试
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequest(c, "读取请求失败")
		return
	}

	var event stripe.Event
	if h.Config.Stripe.SkipWebhookSignature {
		log.Println("[Webhook] 警告：已跳过签名校验（仅限开发环境）")
		if err := json.Unmarshal(payload, &event); err != nil {
			utils.BadRequest(c, "无效的事件数据")
			return
		}
	} else {
		if h.Config.Stripe.WebhookSecret == "" {
			utils.HandleError(c, utils.Upstream("未配置 STRIPE_WEBHOOK_SECRET", nil))
			return
		}
		event, err = webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Config.Stripe.WebhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			log.Printf("[Webhook] 签名校验失败: %v", err)
			utils.BadRequest(c, "签名校验失败")
			return
		}
	}

	res, err := h.Webhooks.Handle(c.Request.Context(), event)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, res)
}
