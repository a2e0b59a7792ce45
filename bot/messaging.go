package bot

import (
	"log/slog"

	"evcoupon/entity"
)

// SendMessageWithLevel infers the topic from the level.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	topic := entity.TopicSystem
	if level >= slog.LevelError {
		topic = entity.TopicError
	}
	t.SendMessageWithTopic(msg, level, topic)
}

// SendMessageWithTopic sends msg to every active chat, or buffers it when the
// topic is a digest topic and the level is below error.
func (t *TgBot) SendMessageWithTopic(msg string, level slog.Level, topic string) {
	if topic == "" {
		topic = entity.TopicSystem
	}
	digest := t.digestTopics[topic] && level < slog.LevelError
	for _, chatId := range t.activeChats() {
		if digest {
			t.digest.Add(chatId, msg, topic, level)
			continue
		}
		t.plainResponse(chatId, msg)
	}
}
