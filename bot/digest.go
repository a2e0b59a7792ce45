package bot

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxTelegramMessageLen = 4096

type DigestEntry struct {
	Message   string
	Topic     string
	Level     slog.Level
	Timestamp time.Time
}

// DigestBuffer collects low-priority alerts per chat and sends them as one message per interval.
type DigestBuffer struct {
	mu       sync.Mutex
	entries  map[int64][]DigestEntry
	interval time.Duration
	bot      *TgBot
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
}

func NewDigestBuffer(bot *TgBot, interval time.Duration) *DigestBuffer {
	return &DigestBuffer{
		entries:  make(map[int64][]DigestEntry),
		interval: interval,
		bot:      bot,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *DigestBuffer) Add(chatId int64, msg string, topic string, level slog.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[chatId] = append(d.entries[chatId], DigestEntry{
		Message:   msg,
		Topic:     topic,
		Level:     level,
		Timestamp: time.Now(),
	})
}

func (d *DigestBuffer) Len(chatId int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries[chatId])
}

func (d *DigestBuffer) StartTicker() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-d.stopCh:
				d.Flush()
				return
			}
		}
	}()
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = make(map[int64][]DigestEntry)
	d.mu.Unlock()

	for chatId, entries := range snapshot {
		if len(entries) == 0 {
			continue
		}
		for _, part := range splitMessage(formatDigest(entries), maxTelegramMessageLen) {
			d.bot.plainResponse(chatId, part)
		}
	}
}

// Stop flushes what is left. Safe to call when the ticker was never started.
func (d *DigestBuffer) Stop() {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		d.Flush()
		return
	}
	close(d.stopCh)
	<-d.done
}

func formatDigest(entries []DigestEntry) string {
	grouped := make(map[string][]DigestEntry)
	for _, e := range entries {
		grouped[e.Topic] = append(grouped[e.Topic], e)
	}
	topics := make([]string, 0, len(grouped))
	for topic := range grouped {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Digest* \\(%d messages\\)\n\n", len(entries)))

	for _, topic := range topics {
		topicEntries := grouped[topic]
		sb.WriteString(fmt.Sprintf("*%s* \\(%d\\):\n", Sanitize(topic), len(topicEntries)))
		for _, e := range topicEntries {
			ts := e.Timestamp.Format("15:04")
			sb.WriteString(fmt.Sprintf("  `%s` %s %s\n", ts, e.Level.String(), e.Message))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
