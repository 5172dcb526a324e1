package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/remocam/internal/debug"
	"github.com/cjeanneret/remocam/internal/hw/sdk"
	"github.com/cjeanneret/remocam/internal/hw/sdk/sim"
	"github.com/cjeanneret/remocam/internal/hw/session"
	"github.com/cjeanneret/remocam/internal/logic/capture"
	"github.com/cjeanneret/remocam/internal/logic/property"
)

func fastTimings() capture.Timings {
	d := time.Microsecond
	return capture.Timings{
		ReleaseHold: d, HalfPressHold: d, AFLockSettle: d, AFReleaseSettle: d,
		PrioritySettle: d, HalfPressSettle: d, FullPressHold: d, ReleaseSettle: d,
		ContinuousSettle: d, ContinuousHold: d,
		WBStepSettle: d, WBModeSettle: d, WBToggle: d, WBStandbyPoll: d, WBCaptureSettle: d,
		PositionSettle: d, FocusAreaSettle: d, FormatPoll: d,
		GetSettle: d, SetSettle: d, WaitPoll: d,
	}
}

func newRemote(t *testing.T, cam *sim.Camera, opts Options) *Remote {
	t.Helper()
	if opts.Save.Path == "" {
		opts.Save = session.SaveInfo{Path: t.TempDir(), StartIndex: -1}
	}
	opts.Timings = fastTimings()
	r := New(cam, opts, debug.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	t.Cleanup(func() {
		_ = r.Close(context.Background())
		cancel()
	})
	return r
}

func TestRemote_ConnectRequiresStart(t *testing.T) {
	r := New(sim.New(), Options{}, nil)
	assert.ErrorIs(t, r.Connect(context.Background()), ErrNotStarted)
}

func TestRemote_ConnectLoadsCache(t *testing.T) {
	r := newRemote(t, sim.New(), Options{})
	require.NoError(t, r.Connect(context.Background()))
	assert.Equal(t, session.Connected, r.Session.State())

	require.Eventually(t, func() bool { return r.Cache.Len() > 0 }, time.Second, time.Millisecond)
	v, ok := r.Cache.Current(property.FNumber)
	require.True(t, ok)
	assert.Equal(t, "F5.6", v.String())
}

func TestRemote_ConnectFailure(t *testing.T) {
	cam := sim.New()
	cam.ConnectErr = sdk.ErrConnectRejected
	r := newRemote(t, cam, Options{})

	err := r.Connect(context.Background())
	assert.ErrorIs(t, err, sdk.ErrConnectRejected)
	assert.Equal(t, session.Disconnected, r.Session.State())
}

func TestRemote_ShootDeliversDownload(t *testing.T) {
	dir := t.TempDir()
	r := newRemote(t, sim.New(), Options{
		Save:     session.SaveInfo{Path: dir, StartIndex: -1},
		AutoExit: true,
	})
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Seq.Shoot(ctx))

	select {
	case <-r.Dispatcher.Done():
	case <-time.After(time.Second):
		t.Fatal("download was not reported")
	}
	path := <-r.Dispatcher.Downloads()
	assert.Equal(t, filepath.Join(dir, "DSC00001.JPG"), path)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRemote_UntilDone(t *testing.T) {
	r := newRemote(t, sim.New(), Options{AutoExit: true})
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))

	runCtx, cancel := r.UntilDone(ctx)
	defer cancel()
	assert.NoError(t, runCtx.Err())

	require.NoError(t, r.Seq.Shoot(ctx))
	select {
	case <-runCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("context outlived the download")
	}
	assert.NoError(t, ctx.Err())
}

func TestRemote_UntilDoneWithoutAutoExit(t *testing.T) {
	r := newRemote(t, sim.New(), Options{})
	parent, stop := context.WithCancel(context.Background())
	require.NoError(t, r.Connect(parent))

	runCtx, cancel := r.UntilDone(parent)
	defer cancel()
	require.NoError(t, r.Seq.Shoot(parent))
	<-r.Dispatcher.Downloads()
	assert.NoError(t, runCtx.Err())

	stop()
	<-runCtx.Done()
}

func TestRemote_ReconnectAfterCablePull(t *testing.T) {
	cam := sim.New()
	r := newRemote(t, cam, Options{})
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))
	old := r.Session.Handle()

	cam.Drop()
	require.Eventually(t, func() bool { return r.Session.State() == session.Disconnected }, time.Second, time.Millisecond)
	assert.Equal(t, old, r.Session.Handle())

	require.NoError(t, r.Connect(ctx))
	assert.NotEqual(t, old, r.Session.Handle())
	_, err := cam.GetDeviceProperties(old)
	assert.ErrorIs(t, err, sdk.ErrGenericInvalidHandle, "the dropped session was finalized")
}

func TestRemote_DisconnectReleases(t *testing.T) {
	r := newRemote(t, sim.New(), Options{})
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Disconnect(ctx))

	assert.Equal(t, session.Disconnected, r.Session.State())
	assert.Zero(t, r.Session.Handle())
	require.Eventually(t, func() bool { return r.Cache.Len() == 0 }, time.Second, time.Millisecond)

	// a second connect reuses the running dispatcher
	require.NoError(t, r.Connect(ctx))
	assert.Equal(t, session.Connected, r.Session.State())
}

func TestRemote_ContentsTransferMode(t *testing.T) {
	r := newRemote(t, sim.New(), Options{Mode: sdk.ModeContentsTransfer})
	require.NoError(t, r.Connect(context.Background()))
	require.Eventually(t, func() bool { return r.Cache.Mode() == sdk.ModeContentsTransfer }, time.Second, time.Millisecond)

	folders, err := r.Content.List()
	require.NoError(t, err)
	assert.Empty(t, folders)
}
