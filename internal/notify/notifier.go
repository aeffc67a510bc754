package notify

import (
	"context"
	"fmt"
	"strings"

	"multisignal_bot/internal/models"
	"multisignal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionsProvider: откуда Telegram берёт открытые позиции для /positions.
type PositionsProvider interface {
	Positions() []models.Position
	TotalBalance() float64
}

// Telegram: пассивный нотифайер + команда /positions.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	book   PositionsProvider
}

func NewTelegram(token string, chatID int64, book PositionsProvider) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		book:   book,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("[NOTIFY] telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions: открытые позиции из портфеля
func (t *Telegram) handlePositions() {
	if t.book == nil {
		t.Send("❗️ Портфель не подключен")
		return
	}
	t.Send(FormatPositions(t.book.Positions(), t.book.TotalBalance()))
}

func FormatPositions(positions []models.Position, balance float64) string {
	if len(positions) == 0 {
		return fmt.Sprintf("📭 Открытых позиций нет, баланс %.2f", balance)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Открытые позиции (баланс %.2f):\n", balance)
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s amount=%.4f @ %.4f lev=%dx\n", p.Pair, p.Amount, p.EntryPrice, p.Leverage)
	}
	return b.String()
}

// Start: long-polling для команд из нашего чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	go t.consume(ctx, t.bot.GetUpdatesChan(u))
	return nil
}

// consume: до отмены ctx или закрытия канала (StopReceivingUpdates закрывает его).
func (t *Telegram) consume(ctx context.Context, updates tgbot.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil || upd.Message.Chat == nil ||
				upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
				continue
			}
			switch upd.Message.Command() {
			case "positions":
				go t.handlePositions()
			}
		}
	}
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

// Stdout: заглушка, всё пишет в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("[NOTIFY] %s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { logger.Info("[NOTIFY] "+format, args...) }
