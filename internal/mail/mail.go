// Package mail 事务邮件发送
package mail

import (
	"context"

	"github.com/user/knowledger/internal/config"
)

// Message 邮件内容
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer 邮件发送接口，调用方记录失败，不重试
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New 配置了 SendGrid key 时使用 SendGrid，否则输出到控制台
func New(cfg config.SendGridConfig, siteName string) Mailer {
	if cfg.APIKey == "" {
		return NewConsoleMailer(cfg.FromEmail, siteName)
	}
	return NewSendGridMailer(cfg.APIKey, cfg.FromEmail, siteName)
}
