package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestVerificationURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:3000/verify-email?token=abc",
		VerificationURL("http://localhost:3000/", "abc"),
	)
	assert.Equal(t,
		"https://diary.example/verify-email?token=a%2Bb",
		VerificationURL("https://diary.example", "a+b"),
	)
}

func TestLogMailer_LogsLink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLogMailer(zap.New(core), "http://localhost:3000")

	require.NoError(t, m.SendVerificationEmail(context.Background(), "dev@example.com", "tok"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dev@example.com", fields["to"])
	assert.Equal(t, "http://localhost:3000/verify-email?token=tok", fields["url"])
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		From:      "Debug Diary <no-reply@debugdiary.local>",
		ClientURL: "http://localhost:3000",
	})
	require.NoError(t, err)

	msg, err := m.buildMessage("dev@example.com", "deadbeef")
	require.NoError(t, err)

	headers, body, found := strings.Cut(string(msg), "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, headers, "To: dev@example.com")
	assert.Contains(t, headers, "Subject: Debug Diary - Verify Your Email")
	assert.Contains(t, headers, `Content-Type: text/html; charset="utf-8"`)
	assert.Contains(t, headers, "no-reply@debugdiary.local")
	assert.Contains(t, body, `href="http://localhost:3000/verify-email?token=deadbeef"`)
}

func TestNewSMTPMailer_RejectsBadSender(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "not an address"})
	assert.Error(t, err)
}
