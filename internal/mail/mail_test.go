package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/config"
)

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, &ConsoleMailer{}, New(config.SendGridConfig{}, "KnowLedger"))
	assert.IsType(t, &SendGridMailer{}, New(config.SendGridConfig{APIKey: "SG.x", FromEmail: "a@b.c"}, "KnowLedger"))
}

func TestConsoleMailerRecords(t *testing.T) {
	m := NewConsoleMailer("no-reply@example.com", "KnowLedger")
	require.NoError(t, m.Send(context.Background(), Message{To: "u@example.com", Subject: "Code", Text: "123456"}))
	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u@example.com", sent[0].To)
}

func TestSendGridPrepare(t *testing.T) {
	m := NewSendGridMailer("SG.x", "no-reply@example.com", "KnowLedger")
	v3 := m.prepare(Message{To: "u@example.com", Subject: "Achat confirmé", Text: "merci"})
	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "[KnowLedger] Achat confirmé", v3.Personalizations[0].Subject)
	assert.Equal(t, "no-reply@example.com", v3.From.Address)
	assert.Len(t, v3.Content, 1)
}
