package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/randalarm/randalarm/common"
	"github.com/randalarm/randalarm/pkg/alarmlib"
	"github.com/randalarm/randalarm/pkg/logger"
	tele "gopkg.in/telebot.v3"
)

// Callback routes for the two inline buttons. The alarm id travels as the
// callback payload.
var (
	snoozeRoute = &tele.InlineButton{Unique: string(common.ActionSnooze)}
	stopRoute   = &tele.InlineButton{Unique: string(common.ActionStop)}
)

// Telegram sends alarm notifications to one chat with two inline buttons.
type Telegram struct {
	bot     *tele.Bot
	chat    tele.Recipient
	log     logger.Logger
	mu      sync.Mutex
	msgs    map[string]*tele.Message
	actions chan Action
	once    sync.Once
}

// NewTelegram starts a long polling bot that posts to chatID.
func NewTelegram(token string, chatID int64, l logger.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("%w: telegram token and chat id are required", ErrUnavailable)
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			l.Error("notify: telegram: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t := newTelegram(b, tele.ChatID(chatID), l)
	b.Handle(snoozeRoute, t.onButton(common.ActionSnooze))
	b.Handle(stopRoute, t.onButton(common.ActionStop))
	go b.Start()
	return t, nil
}

func newTelegram(b *tele.Bot, chat tele.Recipient, l logger.Logger) *Telegram {
	return &Telegram{
		bot:     b,
		chat:    chat,
		log:     l,
		msgs:    make(map[string]*tele.Message),
		actions: make(chan Action, 16),
	}
}

func (t *Telegram) Available() bool { return t.bot != nil }

func (t *Telegram) Show(a *alarmlib.Alarm) error {
	markup := &tele.ReplyMarkup{}
	snooze := markup.Data(SnoozeLabel, snoozeRoute.Unique, a.ID)
	stop := markup.Data(StopLabel, stopRoute.Unique, a.ID)
	markup.Inline(markup.Row(snooze, stop))

	text := fmt.Sprintf("⏰ %s\n%s", Title, Body(a))
	msg, err := t.bot.Send(t.chat, text, &tele.SendOptions{ReplyMarkup: markup})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.mu.Lock()
	old := t.msgs[a.ID]
	t.msgs[a.ID] = msg
	t.mu.Unlock()
	if old != nil {
		_ = t.bot.Delete(old)
	}
	return nil
}

func (t *Telegram) Close(alarmID string) error {
	t.mu.Lock()
	msg, ok := t.msgs[alarmID]
	delete(t.msgs, alarmID)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if err := t.bot.Delete(msg); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	return nil
}

func (t *Telegram) Actions() <-chan Action { return t.actions }

func (t *Telegram) Shutdown() error {
	t.once.Do(func() {
		if t.bot != nil {
			t.bot.Stop()
		}
	})
	return nil
}

func (t *Telegram) onButton(action common.NotificationAction) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil || cb.Data == "" {
			return c.Respond()
		}
		t.emit(action, cb.Data)
		return c.Respond(&tele.CallbackResponse{Text: callbackText(action)})
	}
}

func (t *Telegram) emit(action common.NotificationAction, alarmID string) {
	select {
	case t.actions <- Action{Action: action, AlarmID: alarmID}:
	default:
		t.log.Warning("notify: telegram action queue full, dropping %s for %s", action, alarmID)
	}
}

func callbackText(action common.NotificationAction) string {
	if action == common.ActionSnooze {
		return "Snoozed for 5 minutes"
	}
	return "Alarm stopped"
}
