package web

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/events"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

func next(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var evt StatusEvent
		require.NoError(t, json.Unmarshal([]byte(msg), &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
		return StatusEvent{}
	}
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewStatusBroadcaster()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()
	assert.Equal(t, 2, b.Clients())

	b.Broadcast("warn", "multi")

	for _, ch := range []<-chan string{ch1, ch2} {
		evt := next(t, ch)
		assert.Equal(t, "multi", evt.Msg)
		assert.Equal(t, "warn", evt.Level)
		assert.NotEmpty(t, evt.Time)
	}
}

func TestBroadcaster_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	assert.Zero(t, b.Clients())
	b.BroadcastMsg("after unsub") // must not panic
}

func TestBroadcaster_SlowClientDropsMessages(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 100; i++ {
		b.BroadcastMsg("fill")
	}
	assert.Len(t, ch, 64)
}

func TestBroadcaster_ObserveDownload(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Observe(events.Event{Kind: events.KindDownloadComplete, Filename: "/srv/DSC00001.JPG"})

	evt := next(t, ch)
	assert.Equal(t, events.KindDownloadComplete.String(), evt.Kind)
	assert.Equal(t, "/srv/DSC00001.JPG", evt.Filename)
	assert.Equal(t, "info", evt.Level)
	assert.Empty(t, evt.Action)
}

func TestBroadcaster_ObserveLevels(t *testing.T) {
	cases := []struct {
		name  string
		e     events.Event
		level string
	}{
		{"warning", events.Event{Kind: events.KindWarning, Status: sdk.WarnFrameNotUpdated,
			Guidance: events.Guidance{Action: events.ActionNotify, Message: "m"}}, "warn"},
		{"error", events.Event{Kind: events.KindError}, "error"},
		{"lost", events.Event{Kind: events.KindDisconnected,
			Guidance: events.Guidance{Action: events.ActionReturnToMenu, Message: "camera lost"}}, "error"},
		{"refresh failure", events.Event{Kind: events.KindPropertyChanged, Err: errors.New("io")}, "error"},
		{"refresh", events.Event{Kind: events.KindPropertyChanged, Codes: []property.Code{property.FNumber}}, "info"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewStatusBroadcaster()
			ch, unsub := b.Subscribe()
			defer unsub()

			b.Observe(tc.e)
			evt := next(t, ch)
			assert.Equal(t, tc.level, evt.Level)
			assert.Equal(t, tc.e.Kind.String(), evt.Kind)
		})
	}
}

func TestBroadcaster_ObserveCarriesGuidance(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Observe(events.Event{Kind: events.KindDisconnected,
		Guidance: events.Guidance{Action: events.ActionReturnToMenu, Message: "camera lost"}})

	evt := next(t, ch)
	assert.Equal(t, events.ActionReturnToMenu.String(), evt.Action)
	assert.Contains(t, evt.Msg, "camera lost")
}

func TestBroadcastWriter_SplitsLines(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	w := BroadcastWriter(b)
	in := "  first  \n\n   \nsecond\n"
	n, err := w.Write([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, len(in), n)

	assert.Equal(t, "first", next(t, ch).Msg)
	assert.Equal(t, "second", next(t, ch).Msg)
	assert.Len(t, ch, 0)
}
