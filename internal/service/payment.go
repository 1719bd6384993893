package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/user/knowledger/internal/config"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// 结账会话 metadata 中的键
const (
	metaKind   = "kind"
	metaUserID = "userId"
	metaItemID = "itemId"
	metaType   = "type"
	metaPlan   = "plan"

	kindPurchase     = "purchase"
	kindSubscription = "subscription"
)

// CheckoutParams 创建支付会话的参数
type CheckoutParams struct {
	Subscription  bool
	CustomerID    string
	CustomerEmail string
	PriceID       string // 订阅使用预设价格
	Amount        int64  // 单次购买金额（分）
	Currency      string
	ProductName   string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession 支付会话
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentGateway 支付网关
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	// CancelAtPeriodEnd 到期后取消订阅，返回当前周期结束时间
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error)
}

// StripeGateway 基于 Stripe Checkout 的支付网关
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// CreateCheckout 创建 Stripe Checkout 会话
func (g *StripeGateway) CreateCheckout(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		Metadata:   p.Metadata,
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	if p.Subscription {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(p.PriceID),
			Quantity: stripe.Int64(1),
		}}
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: p.Metadata}
	} else {
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.ProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}}
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CancelAtPeriodEnd 设置订阅在当前周期结束时取消
func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (time.Time, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sub.CurrentPeriodEnd, 0), nil
}

// PaymentService 发起单次购买与订阅
type PaymentService struct {
	repos   *repository.Repositories
	gateway PaymentGateway
	cfg     *config.Config
	now     func() time.Time
}

// NewPaymentService gateway 为 nil 时支付功能不可用
func NewPaymentService(repos *repository.Repositories, gateway PaymentGateway, cfg *config.Config) *PaymentService {
	return &PaymentService{repos: repos, gateway: gateway, cfg: cfg, now: time.Now}
}

func (s *PaymentService) urls() (string, string) {
	return s.cfg.AppURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}", s.cfg.AppURL + "/payment/cancel"
}

// purchasable 加载可购买内容的摘要与标题
func (s *PaymentService) purchasable(ctx context.Context, t model.ContentType, id int) (*model.ContentRef, string, error) {
	switch t {
	case model.TypeArticle:
		a, err := s.repos.Article.FindByID(ctx, id)
		if err != nil || a == nil {
			return nil, "", err
		}
		ref := a.Ref()
		return &ref, a.Title, nil
	case model.TypeVideo:
		v, err := s.repos.Video.FindByID(ctx, id)
		if err != nil || v == nil {
			return nil, "", err
		}
		ref := v.Ref()
		return &ref, v.Title, nil
	case model.TypeFormation:
		f, err := s.repos.Formation.FindByID(ctx, id)
		if err != nil || f == nil {
			return nil, "", err
		}
		ref := f.Ref()
		return &ref, f.Title, nil
	}
	return nil, "", utils.InvalidField("type", "该类型内容不能单独购买")
}

func (s *PaymentService) buyer(ctx context.Context, userID int) (*model.User, error) {
	if s.gateway == nil {
		return nil, utils.Upstream("支付服务未配置", nil)
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

// CheckoutPurchase 为单个付费内容创建支付会话
func (s *PaymentService) CheckoutPurchase(ctx context.Context, userID int, t model.ContentType, itemID int) (*CheckoutSession, error) {
	if !t.Purchasable() {
		return nil, utils.InvalidField("type", "该类型内容不能单独购买")
	}
	user, err := s.buyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	ref, title, err := s.purchasable(ctx, t, itemID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, utils.NotFoundErr("内容不存在")
	}
	if !ref.IsPremium || ref.Price <= 0 {
		return nil, utils.Invalid("免费内容无需购买")
	}
	owned, err := s.repos.Purchase.Exists(ctx, userID, itemID, t)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, utils.Invalid("已购买该内容")
	}

	success, cancel := s.urls()
	session, err := s.gateway.CreateCheckout(ctx, CheckoutParams{
		CustomerID:    user.StripeCustomerID,
		CustomerEmail: user.Email,
		Amount:        int64(math.Round(ref.Price * 100)),
		Currency:      s.cfg.Stripe.Currency,
		ProductName:   title,
		SuccessURL:    success,
		CancelURL:     cancel,
		Metadata: map[string]string{
			metaKind:   kindPurchase,
			metaUserID: strconv.Itoa(userID),
			metaItemID: strconv.Itoa(itemID),
			metaType:   string(t),
		},
	})
	if err != nil {
		return nil, utils.Upstream("创建支付会话失败", err)
	}
	return session, nil
}

// CheckoutSubscription 创建订阅支付会话
func (s *PaymentService) CheckoutSubscription(ctx context.Context, userID int, plan model.Plan) (*CheckoutSession, error) {
	if !plan.Valid() {
		return nil, utils.InvalidField("plan", "套餐必须是 MONTHLY、YEARLY 或 DAILY")
	}
	user, err := s.buyer(ctx, userID)
	if err != nil {
		return nil, err
	}
	priceID := s.cfg.Stripe.PriceIDs[string(plan)]
	if priceID == "" {
		return nil, utils.Upstream("套餐价格未配置", fmt.Errorf("missing price id for %s", plan))
	}
	sub, err := s.repos.Subscription.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.CoversAt(s.now()) && sub.CancelledAt == nil {
		return nil, utils.Invalid("已有有效订阅")
	}

	success, cancel := s.urls()
	session, err := s.gateway.CreateCheckout(ctx, CheckoutParams{
		Subscription:  true,
		CustomerID:    user.StripeCustomerID,
		CustomerEmail: user.Email,
		PriceID:       priceID,
		SuccessURL:    success,
		CancelURL:     cancel,
		Metadata: map[string]string{
			metaKind:   kindSubscription,
			metaUserID: strconv.Itoa(userID),
			metaPlan:   string(plan),
		},
	})
	if err != nil {
		return nil, utils.Upstream("创建订阅会话失败", err)
	}
	return session, nil
}

// Purchases 用户购买记录
func (s *PaymentService) Purchases(ctx context.Context, userID int) ([]*model.Purchase, error) {
	return s.repos.Purchase.ListByUser(ctx, userID)
}
