package notify

import (
	"context"
	"testing"
	"time"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormatPositions(t *testing.T) {
	assert.Contains(t, FormatPositions(nil, 100), "нет")

	out := FormatPositions([]models.Position{
		{Pair: "ADA/USD", Amount: 2400, EntryPrice: 1.5, Leverage: 4},
	}, 9000)
	assert.Contains(t, out, "ADA/USD amount=2400.0000 @ 1.5000 lev=4x")
	assert.Contains(t, out, "9000.00")
}

func TestStdoutWritesToLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	defer logger.Replace(zap.New(core))()

	var n Notifier = NewStdout()
	n.Sendf("halted at %d%%", 6)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "[NOTIFY] halted at 6%", entries[0].Message)
	}
}

func TestNilTelegramIsSafe(t *testing.T) {
	var tg *Telegram
	tg.Send("x")
	tg.Stop()
	assert.NoError(t, tg.Start(context.Background()))
}

func TestConsumeReturnsWhenUpdatesClosed(t *testing.T) {
	tg := &Telegram{chatID: 42}
	updates := make(chan tgbot.Update, 1)
	updates <- tgbot.Update{Message: &tgbot.Message{Text: "hello", Chat: &tgbot.Chat{ID: 42}}}
	close(updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		tg.consume(context.Background(), updates)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume kept running after the channel was closed")
	}
}
