// Package bot delivers log alerts to the staff Telegram chats.
//
// Records tagged with a digest topic (see sl.Topic) are buffered and flushed
// on an interval; everything else is sent right away. Errors always skip the
// digest.
package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"evcoupon/entity"
	"evcoupon/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
)

// Config is the part of the telegram settings the bot needs after the logger is built.
type Config struct {
	ChatIDs        []int64
	DigestTopics   []string
	DigestInterval time.Duration
}

// sender is satisfied by *gotgbot.Bot.
type sender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

type TgBot struct {
	log          *slog.Logger
	api          *tgbotapi.Bot
	out          sender
	mu           sync.RWMutex
	chats        map[int64]bool // chat id -> muted
	digestTopics map[string]bool
	interval     time.Duration
	updater      *ext.Updater
	digest       *DigestBuffer
}

func NewTgBot(apiKey string, log *slog.Logger, cfg Config) (*TgBot, error) {
	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	t := newBot(api, log, cfg)
	t.api = api
	return t, nil
}

func newBot(out sender, log *slog.Logger, cfg Config) *TgBot {
	if cfg.DigestInterval <= 0 {
		cfg.DigestInterval = time.Hour
	}
	t := &TgBot{
		log:          log.With(sl.Module("tgbot")),
		out:          out,
		chats:        make(map[int64]bool, len(cfg.ChatIDs)),
		digestTopics: make(map[string]bool, len(cfg.DigestTopics)),
		interval:     cfg.DigestInterval,
	}
	for _, id := range cfg.ChatIDs {
		t.chats[id] = false
	}
	for _, topic := range cfg.DigestTopics {
		if !entity.IsValidTopic(topic) {
			t.log.With(slog.String("topic", topic)).Warn("unknown digest topic ignored")
			continue
		}
		t.digestTopics[topic] = true
	}
	t.digest = NewDigestBuffer(t, t.interval)
	return t
}

// Start runs the digest ticker and blocks polling for commands until Stop is called.
func (t *TgBot) Start() error {
	t.digest.StartTicker()

	if t.api == nil {
		return nil
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("stop", t.stop))
	dispatcher.AddHandler(handlers.NewCommand("status", t.status))

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	t.digest.Stop()
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

// start unmutes a configured chat; unknown chats only get their id back so it can be added to the config.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if !t.setMuted(chatId, false) {
		t.plainResponse(chatId, Sanitize(fmt.Sprintf("This chat is not configured for alerts. Chat id: %d", chatId)))
		return nil
	}
	t.plainResponse(chatId, "Notifications ENABLED")
	return nil
}

func (t *TgBot) stop(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	if t.setMuted(chatId, true) {
		t.plainResponse(chatId, "Notifications DISABLED")
	}
	return nil
}

func (t *TgBot) status(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveChat.Id
	t.mu.RLock()
	muted, ok := t.chats[chatId]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	state := "enabled"
	if muted {
		state = "disabled"
	}
	msg := fmt.Sprintf("Notifications %s\nPending digest entries: %d", state, t.digest.Len(chatId))
	t.plainResponse(chatId, Sanitize(msg))
	return nil
}

// setMuted reports whether the chat is configured.
func (t *TgBot) setMuted(chatId int64, muted bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.chats[chatId]; !ok {
		return false
	}
	t.chats[chatId] = muted
	return true
}

func (t *TgBot) activeChats() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.chats))
	for id, muted := range t.chats {
		if !muted {
			ids = append(ids, id)
		}
	}
	return ids
}
