package process

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs/fsmock"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs/fsmock/helpers"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestBuildPathEnvUnix(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockFS := fsmock.NewMockMuxFS(ctrl)
	mockFS.EXPECT().ReadDir("/home/dev/.nvm/versions/node").Return([]os.DirEntry{
		helpers.MockDirEntry("v20.11.0", true),
		helpers.MockDirEntry("v18.0.0", true),
	}, nil)
	mockFS.EXPECT().DirExists("/home/dev/.nvm/versions/node/v20.11.0/bin").Return(true, nil)
	mockFS.EXPECT().DirExists("/home/dev/.nvm/versions/node/v18.0.0/bin").Return(false, nil)

	got := buildPathEnv(mockFS, "linux", "/tmp/bin:/usr/bin", "/home/dev", "/opt/tools/codex")

	assert.Equal(t, []string{
		"/tmp/bin",
		"/usr/bin",
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/bin",
		"/usr/sbin",
		"/sbin",
		"/home/dev/.local/bin",
		"/home/dev/.local/share/mise/shims",
		"/home/dev/.cargo/bin",
		"/home/dev/.bun/bin",
		"/home/dev/.nvm/versions/node/v20.11.0/bin",
		"/opt/tools",
	}, strings.Split(got, ":"))
}

func TestBuildPathEnvWindows(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockFS := fsmock.NewMockMuxFS(ctrl)

	got := buildPathEnv(mockFS, "windows", `C:\Temp\bin`, `C:\Users\dev`, `C:\Tools\codex\codex.exe`)

	assert.Equal(t, `C:\Temp\bin;C:\Users\dev\.cargo\bin;C:\Tools\codex`, got)
}

func TestBuildPathEnvBareBinaryAndNoHome(t *testing.T) {
	got := buildPathEnv(fs.New(), "linux", "", "", "codex")
	assert.Equal(t, strings.Join(_unixExtras, ":"), got)
}

func TestBuildPathEnvUsesEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PATH", "/custom/bin")
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got := BuildPathEnv(fs.New(), "")
	assert.True(t, strings.HasPrefix(got, "/custom/bin"))
}

func TestBuildPathEnvHomeDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("home-relative locations differ on windows")
	}
	t.Setenv("PATH", "/custom/bin")

	t.Run("from the filesystem", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockFS := fsmock.NewMockMuxFS(ctrl)
		mockFS.EXPECT().UserHomeDir().Return("/home/dev", nil)
		mockFS.EXPECT().ReadDir("/home/dev/.nvm/versions/node").Return(nil, os.ErrNotExist)

		assert.Contains(t, strings.Split(BuildPathEnv(mockFS, ""), ":"), "/home/dev/.cargo/bin")
	})

	t.Run("unknown home", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockFS := fsmock.NewMockMuxFS(ctrl)
		mockFS.EXPECT().UserHomeDir().Return("", errors.New("$HOME is not defined"))

		assert.Equal(t, "/custom/bin:"+strings.Join(_unixExtras, ":"), BuildPathEnv(mockFS, ""))
	})
}

func TestBinParent(t *testing.T) {
	assert.Equal(t, "/usr/local/bin", binParent("linux", "/usr/local/bin/codex"))
	assert.Equal(t, "/", binParent("linux", "/codex"))
	assert.Equal(t, "", binParent("linux", "codex"))
	assert.Equal(t, `C:\Tools`, binParent("windows", `C:\Tools\codex.cmd`))
}
