package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"evcoupon/entity"
	"evcoupon/lib/sl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	msg   string
	level slog.Level
	topic string
}

type recorder struct {
	notes []note
}

func (r *recorder) SendMessageWithTopic(msg string, level slog.Level, topic string) {
	r.notes = append(r.notes, note{msg: msg, level: level, topic: topic})
}

func newTestLogger(rec *recorder) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewTelegramHandler(base, rec, slog.LevelWarn)), &buf
}

func TestTelegramHandlerLevels(t *testing.T) {
	rec := &recorder{}
	log, buf := newTestLogger(rec)

	log.Debug("noise")
	log.Info("started")
	log.Warn("slow query")

	assert.Contains(t, buf.String(), "noise")
	require.Len(t, rec.notes, 1)
	assert.Equal(t, slog.LevelWarn, rec.notes[0].level)
	assert.Equal(t, entity.TopicSystem, rec.notes[0].topic)
}

func TestTelegramHandlerTopic(t *testing.T) {
	rec := &recorder{}
	log, _ := newTestLogger(rec)

	log.With(sl.Module("coupon")).Warn("already redeemed", sl.Topic(entity.TopicRedemption), slog.Int64("instance_id", 5))
	log.Error("store failure", sl.Err(errors.New("connection reset")))

	require.Len(t, rec.notes, 2)
	assert.Equal(t, entity.TopicRedemption, rec.notes[0].topic)
	assert.Contains(t, rec.notes[0].msg, `instance\_id: 5`)
	assert.Contains(t, rec.notes[0].msg, "mod: coupon")
	assert.NotContains(t, rec.notes[0].msg, sl.TopicKey)

	assert.Equal(t, entity.TopicError, rec.notes[1].topic)
	assert.Contains(t, rec.notes[1].msg, "connection reset")
}

func TestTelegramHandlerGroup(t *testing.T) {
	rec := &recorder{}
	log, _ := newTestLogger(rec)

	log.WithGroup("http").Error("panic")

	require.Len(t, rec.notes, 1)
	assert.Contains(t, rec.notes[0].msg, "`http.panic`")
}

func TestNilNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewTelegramHandler(slog.NewTextHandler(&buf, nil), nil, slog.LevelWarn))
	log.Error("still logged")
	assert.Contains(t, buf.String(), "still logged")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(" info "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("whatever"))
}
