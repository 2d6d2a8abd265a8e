// Package process builds and terminates agent child processes.
package process

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
)

var _unixExtras = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
	"/bin",
	"/usr/sbin",
	"/sbin",
}

// BuildPathEnv returns the PATH for an agent child: the current PATH followed by common install
// locations and the directory of bin, without duplicates. It returns "" when the result is empty.
// Home-relative locations are skipped when the home directory cannot be determined.
func BuildPathEnv(fsys fs.MuxFS, bin string) string {
	home, err := fsys.UserHomeDir()
	if err != nil {
		home = ""
	}
	return buildPathEnv(fsys, runtime.GOOS, os.Getenv("PATH"), home, bin)
}

func buildPathEnv(fsys fs.MuxFS, goos, currentPath, home, bin string) string {
	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	sep := string(os.PathListSeparator)
	if goos == "windows" {
		sep = ";"
	}
	for _, p := range strings.Split(currentPath, sep) {
		add(p)
	}

	if goos != "windows" {
		for _, p := range _unixExtras {
			add(p)
		}
	}

	if home != "" {
		if goos == "windows" {
			add(home + `\.cargo\bin`)
		} else {
			add(home + "/.local/bin")
			add(home + "/.local/share/mise/shims")
			add(home + "/.cargo/bin")
			add(home + "/.bun/bin")
			for _, p := range nvmBinDirs(fsys, home) {
				add(p)
			}
		}
	}

	if strings.TrimSpace(bin) != "" {
		if parent := binParent(goos, bin); parent != "" {
			add(parent)
		}
	}

	return strings.Join(paths, sep)
}

func nvmBinDirs(fsys fs.MuxFS, home string) []string {
	root := filepath.Join(home, ".nvm", "versions", "node")
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, e := range entries {
		bin := filepath.Join(root, e.Name(), "bin")
		if ok, err := fsys.DirExists(bin); err == nil && ok {
			dirs = append(dirs, bin)
		}
	}
	return dirs
}

// binParent returns the directory part of bin, or "" for a bare command name.
func binParent(goos, bin string) string {
	idx := strings.LastIndex(bin, "/")
	if goos == "windows" {
		idx = strings.LastIndexAny(bin, `\/`)
	}
	if idx <= 0 {
		if idx == 0 {
			return bin[:1]
		}
		return ""
	}
	return bin[:idx]
}
