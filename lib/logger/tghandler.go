package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"evcoupon/bot"
	"evcoupon/lib/sl"
)

// Notifier is implemented by *bot.TgBot.
type Notifier interface {
	SendMessageWithTopic(msg string, level slog.Level, topic string)
}

// TelegramHandler forwards records at or above minLevel to a Notifier.
// A sl.Topic attribute selects the topic and is not included in the text.
type TelegramHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
	}
}

// Enabled keeps the wrapped handler's level; telegram filtering happens in Handle.
func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if h.notifier == nil || record.Level < h.minLevel {
		return nil
	}

	name := record.Message
	if h.group != "" {
		name = h.group + "." + name
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s* `%s`", record.Level.String(), name))

	topic := ""
	write := func(attr slog.Attr) {
		switch attr.Key {
		case sl.TopicKey:
			topic = attr.Value.String()
		case "error":
			sb.WriteString(fmt.Sprintf("\nerror: ```\n%s\n```", strings.ReplaceAll(attr.Value.String(), "`", "'")))
		default:
			sb.WriteString(bot.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)))
		}
	}
	for _, attr := range h.attrs {
		write(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		write(attr)
		return true
	})

	if topic == "" {
		topic = defaultTopic(record.Level)
	}
	h.notifier.SendMessageWithTopic(sb.String(), record.Level, topic)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
