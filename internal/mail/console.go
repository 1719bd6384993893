package mail

import (
	"context"
	"log"
	"sync"
)

// ConsoleMailer 开发环境使用，只打印日志并保留发送记录
type ConsoleMailer struct {
	from       string
	subjPrefix string

	mu   sync.Mutex
	sent []Message
}

func NewConsoleMailer(fromEmail, siteName string) *ConsoleMailer {
	return &ConsoleMailer{from: fromEmail, subjPrefix: "[" + siteName + "] "}
}

// Send 打印邮件
func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("[Mail] From: %s To: %s Subject: %s%s\n%s", m.from, msg.To, m.subjPrefix, msg.Subject, msg.Text)
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

// Sent 已发送的邮件
func (m *ConsoleMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
