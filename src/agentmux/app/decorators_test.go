package app

import (
	"errors"
	"testing"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	fsmock "github.com/agentmux/agentmux/src/agentmux/internal/fs/fsmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEnv(t *testing.T) {
	tests := []struct {
		name      string
		envVal    string
		expectVal string
	}{
		{
			name:      "local",
			expectVal: EnvLocal,
		},
		{
			name:      "development",
			envVal:    "development",
			expectVal: EnvDevelopment,
		},
		{
			name:      "unknown value falls back to local",
			envVal:    "production",
			expectVal: EnvLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(_envAgentmuxEnvironment, tt.envVal)

			fxtest.New(
				t,
				fx.Provide(func() Context {
					return Context{
						Environment:        EnvLocal,
						RuntimeEnvironment: EnvLocal,
					}
				}),
				fx.Decorate(decorateEnvContext),
				fx.Invoke(func(ctx Context) {
					require.Equal(t, tt.expectVal, ctx.Environment, "unexpected environment")
					require.Equal(t, tt.expectVal, ctx.RuntimeEnvironment, "unexpected runtime environment")
				}),
			).RequireStart().RequireStop()
		})
	}
}

func staticConfig(t *testing.T, values map[string]interface{}) config.Provider {
	p, err := config.NewStaticProvider(values)
	require.NoError(t, err)
	return p
}

func TestDecorateConfigProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	fsMock := fsmock.NewMockMuxFS(ctrl)
	gomock.InOrder(
		fsMock.EXPECT().MkdirAll("/var/log/agentmux").Return(nil),
		fsMock.EXPECT().MkdirAll("/home/dev/.agentmux").Return(nil),
	)

	fxtest.New(
		t,
		fx.Provide(func() fs.MuxFS {
			return fsMock
		}),
		fx.Provide(func() config.Provider {
			return staticConfig(t, map[string]interface{}{
				"dataDir": "/home/dev/.agentmux",
				"logging": map[string]interface{}{
					"outputPaths": []string{"stderr", "/var/log/agentmux/agentmuxd.log"},
				},
			})
		}),
		fx.Provide(func() Context {
			return Context{RuntimeEnvironment: EnvDevelopment}
		}),
		fx.Decorate(decorateConfigProvider),
		fx.Invoke(func(cfg config.Provider) {
			var dataDir string
			require.NoError(t, cfg.Get("dataDir").Populate(&dataDir))
			assert.Equal(t, "/home/dev/.agentmux", dataDir)
		}),
	).RequireStart().RequireStop()
}

func TestDecorateConfigProviderMkdirFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	fsMock := fsmock.NewMockMuxFS(ctrl)
	fsMock.EXPECT().MkdirAll("/home/dev/.agentmux").Return(errors.New("read-only file system"))

	_, err := decorateConfigProvider(DecorateConfigParams{
		Cfg: staticConfig(t, map[string]interface{}{"dataDir": "/home/dev/.agentmux"}),
		FS:  fsMock,
	})
	assert.ErrorContains(t, err, "creating /home/dev/.agentmux: read-only file system")
}

func TestWritableDirs(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		want    []string
		wantErr string
	}{
		{
			name: "log outputs then data dir",
			values: map[string]interface{}{
				"dataDir": "/data",
				"logging": map[string]interface{}{
					"outputPaths":      []string{"/tmp/foo/a.log", "/tmp/bar/b.log"},
					"errorOutputPaths": []string{"/tmp/errors/e.log"},
				},
			},
			want: []string{"/tmp/foo", "/tmp/bar", "/tmp/errors", "/data"},
		},
		{
			name: "standard streams and duplicates are skipped",
			values: map[string]interface{}{
				"dataDir": "/tmp/foo",
				"logging": map[string]interface{}{
					"outputPaths":      []string{"stdout", "/tmp/foo/a.log", "/tmp/foo/b.log"},
					"errorOutputPaths": []string{"stderr"},
				},
			},
			want: []string{"/tmp/foo"},
		},
		{
			name:   "nothing configured",
			values: map[string]interface{}{"service": map[string]interface{}{"name": "agentmuxd"}},
			want:   nil,
		},
		{
			name:    "malformed logging block",
			values:  map[string]interface{}{"logging": "verbose"},
			wantErr: "loading logging config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dirs, err := writableDirs(staticConfig(t, tt.values))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dirs)
		})
	}
}
