package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
)

// 处理的 Stripe 事件类型
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
	EventInvoicePaymentSucceed = "invoice.payment_succeeded"
)

// WebhookResult 回调处理结果
type WebhookResult struct {
	EventID   string `json:"eventId"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}

// WebhookService 处理 Stripe 回调，按事件 ID 去重
type WebhookService struct {
	repos       *repository.Repositories
	entitlement *EntitlementService
	mailer      mail.Mailer
	now         func() time.Time
}

func NewWebhookService(repos *repository.Repositories, entitlement *EntitlementService, mailer mail.Mailer) *WebhookService {
	return &WebhookService{repos: repos, entitlement: entitlement, mailer: mailer, now: time.Now}
}

// effects 事务提交后执行的副作用
type effects struct {
	users  []int
	emails []mail.Message
}

func (e *effects) touch(userID int) {
	e.users = append(e.users, userID)
}

// Handle 在一个事务内登记事件并更新购买、订阅与角色；重复事件直接确认
func (s *WebhookService) Handle(ctx context.Context, event stripe.Event) (*WebhookResult, error) {
	res := &WebhookResult{EventID: event.ID, Type: string(event.Type)}
	if event.ID == "" {
		return nil, fmt.Errorf("event id is empty")
	}

	fx := &effects{}
	err := s.repos.Transaction(ctx, func(ctx context.Context) error {
		claimed, err := s.repos.WebhookEvent.Claim(ctx, event.ID, string(event.Type))
		if err != nil {
			return err
		}
		if !claimed {
			res.Duplicate = true
			return nil
		}
		if event.Data == nil {
			return nil
		}

		switch string(event.Type) {
		case EventCheckoutCompleted:
			res.Handled = true
			return s.checkoutCompleted(ctx, event.Data.Raw, fx)
		case EventSubscriptionUpdated:
			res.Handled = true
			return s.subscriptionUpdated(ctx, event.Data.Raw, fx)
		case EventSubscriptionDeleted:
			res.Handled = true
			return s.subscriptionDeleted(ctx, event.Data.Raw, fx)
		case EventInvoicePaymentSucceed:
			res.Handled = true
			return s.invoicePaid(ctx, event.Data.Raw, fx)
		}
		return nil
	})
	if err != nil {
		log.Printf("[WebhookService] 处理事件 %s (%s) 失败: %v", event.ID, event.Type, err)
		return nil, err
	}
	if res.Duplicate {
		log.Printf("[WebhookService] 重复事件 %s，已忽略", event.ID)
		return res, nil
	}

	for _, id := range fx.users {
		s.entitlement.Invalidate(id)
	}
	for _, msg := range fx.emails {
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Printf("[WebhookService] 发送邮件给 %s 失败: %v", msg.To, err)
		}
	}
	return res, nil
}

func metaInt(md map[string]string, key string) int {
	n, _ := strconv.Atoi(md[key])
	return n
}

func (s *WebhookService) checkoutCompleted(ctx context.Context, raw json.RawMessage, fx *effects) error {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	userID := metaInt(cs.Metadata, metaUserID)
	if userID == 0 {
		userID, _ = strconv.Atoi(cs.ClientReferenceID)
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil && cs.Customer != nil && cs.Customer.ID != "" {
		if user, err = s.repos.User.FindByStripeCustomer(ctx, cs.Customer.ID); err != nil {
			return err
		}
	}
	if user == nil {
		log.Printf("[WebhookService] 会话 %s 没有对应用户，跳过", cs.ID)
		return nil
	}
	if cs.Customer != nil && cs.Customer.ID != "" && user.StripeCustomerID != cs.Customer.ID {
		if err := s.repos.User.SetStripeCustomer(ctx, user.ID, cs.Customer.ID); err != nil {
			return err
		}
	}

	if cs.Mode == stripe.CheckoutSessionModeSubscription || cs.Metadata[metaKind] == kindSubscription {
		return s.activateSubscription(ctx, user, &cs, fx)
	}
	return s.recordPurchase(ctx, user, &cs, fx)
}

func (s *WebhookService) recordPurchase(ctx context.Context, user *model.User, cs *stripe.CheckoutSession, fx *effects) error {
	t := model.ContentType(cs.Metadata[metaType])
	itemID := metaInt(cs.Metadata, metaItemID)
	if !t.Purchasable() || itemID == 0 {
		log.Printf("[WebhookService] 会话 %s 缺少购买信息，跳过", cs.ID)
		return nil
	}
	created, err := s.repos.Purchase.Create(ctx, &model.Purchase{
		UserID:          user.ID,
		ItemID:          itemID,
		Type:            t,
		Price:           float64(cs.AmountTotal) / 100,
		StripeSessionID: cs.ID,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	fx.touch(user.ID)
	fx.emails = append(fx.emails, mail.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "购买成功",
		Text:    fmt.Sprintf("感谢购买！您现在可以访问 %s #%d 的全部内容。", t, itemID),
	})
	log.Printf("[WebhookService] 用户 %d 购买 %s #%d", user.ID, t, itemID)
	return nil
}

func (s *WebhookService) activateSubscription(ctx context.Context, user *model.User, cs *stripe.CheckoutSession, fx *effects) error {
	plan := model.Plan(cs.Metadata[metaPlan])
	if !plan.Valid() {
		plan = model.PlanMonthly
	}
	existing, err := s.repos.Subscription.FindByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	end := plan.Extend(s.now())
	sub := &model.Subscription{UserID: user.ID, Plan: plan, IsActive: true, EndDate: &end}
	if existing != nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	if cs.Subscription != nil {
		sub.StripeSubscriptionID = cs.Subscription.ID
	}
	if err := s.repos.Subscription.Upsert(ctx, sub); err != nil {
		return err
	}
	if err := promote(ctx, s.repos, user.ID); err != nil {
		return err
	}
	fx.touch(user.ID)
	fx.emails = append(fx.emails, mail.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: "订阅已开通",
		Text:    fmt.Sprintf("您的 %s 订阅已生效，有效期至 %s。", plan, end.Format("2006-01-02")),
	})
	log.Printf("[WebhookService] 用户 %d 开通 %s 订阅", user.ID, plan)
	return nil
}

func subscriptionActive(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}

func (s *WebhookService) subscriptionUpdated(ctx context.Context, raw json.RawMessage, fx *effects) error {
	var ss stripe.Subscription
	if err := json.Unmarshal(raw, &ss); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	sub, err := s.repos.Subscription.FindByStripeID(ctx, ss.ID)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Printf("[WebhookService] 未知订阅 %s，跳过", ss.ID)
		return nil
	}

	sub.IsActive = subscriptionActive(ss.Status)
	if ss.CurrentPeriodEnd > 0 {
		end := time.Unix(ss.CurrentPeriodEnd, 0)
		sub.EndDate = &end
	}
	if ss.CancelAtPeriodEnd || ss.CanceledAt > 0 {
		if sub.CancelledAt == nil {
			at := s.now()
			if ss.CanceledAt > 0 {
				at = time.Unix(ss.CanceledAt, 0)
			}
			sub.CancelledAt = &at
		}
	} else {
		sub.CancelledAt = nil
	}
	if err := s.repos.Subscription.Upsert(ctx, sub); err != nil {
		return err
	}
	if sub.IsActive {
		err = promote(ctx, s.repos, sub.UserID)
	} else {
		err = demote(ctx, s.repos, sub.UserID)
	}
	if err != nil {
		return err
	}
	fx.touch(sub.UserID)
	return nil
}

func (s *WebhookService) subscriptionDeleted(ctx context.Context, raw json.RawMessage, fx *effects) error {
	var ss stripe.Subscription
	if err := json.Unmarshal(raw, &ss); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	sub, err := s.repos.Subscription.FindByStripeID(ctx, ss.ID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	if err := s.repos.Subscription.Deactivate(ctx, sub.ID); err != nil {
		return err
	}
	if err := demote(ctx, s.repos, sub.UserID); err != nil {
		return err
	}
	fx.touch(sub.UserID)
	log.Printf("[WebhookService] 订阅 %s 已删除，用户 %d 降级", ss.ID, sub.UserID)
	return nil
}

// invoicePaid 续费成功：优先使用账单行的周期结束时间，否则按套餐顺延
func (s *WebhookService) invoicePaid(ctx context.Context, raw json.RawMessage, fx *effects) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return nil
	}
	sub, err := s.repos.Subscription.FindByStripeID(ctx, inv.Subscription.ID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}

	var end time.Time
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period != nil && line.Period.End > 0 {
				end = time.Unix(line.Period.End, 0)
				break
			}
		}
	}
	if end.IsZero() {
		base := s.now()
		if sub.EndDate != nil && sub.EndDate.After(base) {
			base = *sub.EndDate
		}
		end = sub.Plan.Extend(base)
	}
	sub.EndDate = &end
	sub.IsActive = true
	if err := s.repos.Subscription.Upsert(ctx, sub); err != nil {
		return err
	}
	if err := promote(ctx, s.repos, sub.UserID); err != nil {
		return err
	}
	fx.touch(sub.UserID)
	return nil
}
