package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Injectées à la compilation via -ldflags, ex:
//
//	-X github.com/Guilhem-Bonnet/screencraft/internal/buildinfo.Version=v0.1.0
//	-X github.com/Guilhem-Bonnet/screencraft/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/screencraft/internal/buildinfo.Date=2026-10-19
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion"`
}

// Current complète Commit depuis les infos VCS du binaire si -ldflags ne l'a pas fourni.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	if info.Commit != "" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				if info.Date == "" {
					info.Date = s.Value
				}
			}
		}
	}
	return info
}

func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		return fmt.Sprintf("screencraft %s (%s)", i.Version, i.GoVersion)
	}
	return fmt.Sprintf("screencraft %s %s (%s)", i.Version, commit, i.GoVersion)
}
