package journal

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/logic/events"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

func readAll(t *testing.T, path, kind string) []Record {
	t.Helper()
	r, err := NewReader(path, kind)
	require.NoError(t, err)
	defer r.Close()

	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestFromEvent(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	r := FromEvent(events.Event{
		Kind:      events.KindPropertyChanged,
		Time:      now,
		TraceID:   "t1",
		SessionID: "s1",
		Codes:     []property.Code{property.FNumber, property.IsoSensitivity},
		Err:       errors.New("boom"),
	})
	assert.Equal(t, "property-changed", r.Kind)
	assert.Equal(t, []uint32{uint32(property.FNumber), uint32(property.IsoSensitivity)}, r.Codes)
	assert.Equal(t, "boom", r.Err)
	assert.Empty(t, r.Action)

	d := FromEvent(events.Event{
		Kind:     events.KindDisconnected,
		Status:   sdk.ErrConnectDisconnected,
		Guidance: events.Guidance{Action: events.ActionReturnToMenu, Message: "gone"},
	})
	assert.Equal(t, "return-to-menu", d.Action)
	assert.Equal(t, uint32(sdk.ErrConnectDisconnected), d.Status)
	assert.Contains(t, d.String(), "[return-to-menu] gone")
}

func TestJournal_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	j, err := Open(path)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	j.Observe(events.Event{Kind: events.KindConnected, Time: now, SessionID: "abc"})
	j.Observe(events.Event{Kind: events.KindDownloadComplete, Time: now.Add(time.Second), Filename: "/tmp/DSC00001.JPG"})
	assert.Equal(t, 2, j.Written())
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	assert.ErrorIs(t, j.Write(Record{Kind: "late"}), os.ErrClosed)

	recs := readAll(t, path, "")
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Time.Equal(now), "nanoseconds survive")
	assert.Equal(t, "abc", recs[0].SessionID)
	assert.Equal(t, "/tmp/DSC00001.JPG", recs[1].Filename)

	only := readAll(t, path, "download-complete")
	require.Len(t, only, 1)
	assert.Equal(t, "download-complete", only[0].Kind)
}

func TestJournal_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	for i := 0; i < 2; i++ {
		j, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, j.Write(Record{Kind: "connected"}))
		require.NoError(t, j.Close())
	}
	assert.Len(t, readAll(t, path, ""), 2)
}

func TestJournal_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	j, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 25; n++ {
				j.Observe(events.Event{Kind: events.KindPropertyChanged})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, j.Close())
	assert.Len(t, readAll(t, path, ""), 200)
}

func TestDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Write(Record{Kind: "warning", Status: 0x20001}))
	require.NoError(t, j.Close())

	var buf bytes.Buffer
	n, err := Dump(path, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "warning")
	assert.Contains(t, buf.String(), "status=0x20001")
}

func TestNewReader_Missing(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "none.cbor"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
