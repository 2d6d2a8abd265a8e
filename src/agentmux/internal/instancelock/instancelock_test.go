package instancelock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs/fsmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func staticConfig(t *testing.T, dataDir string) config.Provider {
	p, err := config.NewStaticProvider(map[string]interface{}{"dataDir": dataDir})
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	t.Run("holds the lock while running", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		lc := fxtest.NewLifecycle(t)
		l, err := New(Params{Config: staticConfig(t, dir), Lifecycle: lc, FS: fs.New()})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "agentmuxd.lock"), l.Path())

		lc.RequireStart()
		assert.True(t, l.Locked())
		lc.RequireStop()
		assert.False(t, l.Locked())
	})

	t.Run("missing data dir", func(t *testing.T) {
		_, err := New(Params{Config: staticConfig(t, ""), Lifecycle: fxtest.NewLifecycle(t)})
		assert.ErrorContains(t, err, `missing field "dataDir"`)
	})
}

func TestSecondInstance(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := newLock(dir, nil, nil)
	require.NoError(t, first.acquire(ctx))
	defer first.release(ctx)

	second := newLock(dir, nil, nil)
	err := second.acquire(ctx)
	var running *AlreadyRunningError
	require.ErrorAs(t, err, &running)
	assert.Equal(t, filepath.Join(dir, "agentmuxd.lock"), running.Path)
	assert.NoError(t, second.release(ctx))

	require.NoError(t, first.release(ctx))
	require.NoError(t, second.acquire(ctx))
	assert.NoError(t, second.release(ctx))
}

func TestAcquireMkdirFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	fsMock := fsmock.NewMockMuxFS(ctrl)
	fsMock.EXPECT().MkdirAll("/data").Return(errors.New("read-only file system"))

	l := newLock("/data", fsMock, nil)
	assert.ErrorContains(t, l.acquire(context.Background()), "creating data directory")
}
