package mail

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLoggerRecordsInOrder(t *testing.T) {
	l := NewMessageLogger("primary", 0)
	first := &Message{Subject: "first"}
	second := &Message{Subject: "second"}

	l.Record(first)
	l.Record(second)

	assert.Equal(t, 2, l.CountMessages())
	assert.Equal(t, []*Message{first, second}, l.Messages())
	assert.Equal(t, "primary", l.Channel())
}

func TestMessageLoggerCapKeepsCounting(t *testing.T) {
	l := NewMessageLogger("capped", 2)
	for i := 0; i < 5; i++ {
		l.Record(&Message{})
	}

	assert.Equal(t, 5, l.CountMessages())
	assert.Len(t, l.Messages(), 2)
}

func TestMessageLoggerMessagesIsACopy(t *testing.T) {
	l := NewMessageLogger("primary", 0)
	l.Record(&Message{Subject: "kept"})

	got := l.Messages()
	got[0] = &Message{Subject: "replaced"}

	assert.Equal(t, "kept", l.Messages()[0].Subject)
}

func TestMessageLoggerReset(t *testing.T) {
	l := NewMessageLogger("primary", 0)
	l.Record(&Message{})
	l.Reset()

	assert.Zero(t, l.CountMessages())
	assert.Empty(t, l.Messages())
}

func TestMessageLoggerConcurrentSends(t *testing.T) {
	l := NewMessageLogger("busy", 0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(&Message{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, l.CountMessages())
	assert.Len(t, l.Messages(), 20)
}

func TestLifecycle(t *testing.T) {
	l := NewLifecycle()
	assert.False(t, l.Initialized())
	l.MarkInitialized()
	assert.True(t, l.Initialized())
	l.MarkInitialized()
	assert.True(t, l.Initialized())
}

func TestMessageLogFromContext(t *testing.T) {
	_, ok := MessageLogFromContext(context.Background())
	assert.False(t, ok)

	log := &MessageLog{loggers: map[string]*MessageLogger{"primary": NewMessageLogger("primary", 0)}}
	got, ok := MessageLogFromContext(ContextWithMessageLog(context.Background(), log))
	require.True(t, ok)
	assert.Same(t, log, got)

	_, ok = got.Logger("other")
	assert.False(t, ok)

	var missing *MessageLog
	_, ok = missing.Logger("primary")
	assert.False(t, ok)
}

func TestContextLoggerRecordsIntoItsOwnLog(t *testing.T) {
	first := &MessageLog{loggers: map[string]*MessageLogger{"primary": NewMessageLogger("primary", 0)}}
	second := &MessageLog{loggers: map[string]*MessageLogger{"primary": NewMessageLogger("primary", 0)}}

	contextLogger{}.BeforeSend(ContextWithMessageLog(context.Background(), first), "primary", &Message{Subject: "a"})
	contextLogger{}.BeforeSend(ContextWithMessageLog(context.Background(), first), "primary", &Message{Subject: "b"})
	contextLogger{}.BeforeSend(context.Background(), "primary", &Message{Subject: "dropped"})

	l, _ := first.Logger("primary")
	assert.Equal(t, 2, l.CountMessages())
	l, _ = second.Logger("primary")
	assert.Zero(t, l.CountMessages())
}
