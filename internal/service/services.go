package service

import (
	"github.com/user/knowledger/internal/config"
	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/storage"
)

// Services 所有业务服务
type Services struct {
	Entitlement   *EntitlementService
	Content       *ContentService
	History       *HistoryService
	Progress      *ProgressService
	Ratings       *RatingService
	Cleanup       *MediaCleanupService
	Payments      *PaymentService
	Subscriptions *SubscriptionService
	Webhooks      *WebhookService
	Comments      *CommentService
	Auth          *AuthService
	TwoFactor     *TwoFactorService
	Search        *SearchService
	Admin         *AdminService
}

// NewServices 组装服务；gateway 为 nil 时支付相关接口返回错误
func NewServices(repos *repository.Repositories, cfg *config.Config, store storage.Storage, mailer mail.Mailer, gateway PaymentGateway) *Services {
	entitlement := NewEntitlementService(repos)
	ratings := NewRatingService(repos)
	cleanup := NewMediaCleanupService(repos, store)
	twoFactor := NewTwoFactorService(repos, mailer)

	return &Services{
		Entitlement:   entitlement,
		Content:       NewContentService(repos, entitlement, ratings, cleanup),
		History:       NewHistoryService(repos),
		Progress:      NewProgressService(repos),
		Ratings:       ratings,
		Cleanup:       cleanup,
		Payments:      NewPaymentService(repos, gateway, cfg),
		Subscriptions: NewSubscriptionService(repos, gateway, entitlement),
		Webhooks:      NewWebhookService(repos, entitlement, mailer),
		Comments:      NewCommentService(repos),
		Auth:          NewAuthService(repos, twoFactor),
		TwoFactor:     twoFactor,
		Search:        NewSearchService(repos),
		Admin:         NewAdminService(repos, entitlement, cleanup),
	}
}
