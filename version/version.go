package version

import (
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"time"
)

const (
	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	settingModified = "vcs.modified"
)

// Info describes the build of the running binary.
type Info struct {
	Commit     string    `json:"commit"`
	CommitTime time.Time `json:"commit_time,omitzero"`
	Modified   bool      `json:"modified"`
	GoVersion  string    `json:"go_version"`
}

// Get returns the build info of the running binary. The result is computed once.
var Get = sync.OnceValue(func() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{GoVersion: runtime.Version()}
	}
	return fromBuildInfo(info)
})

func fromBuildInfo(info *debug.BuildInfo) Info {
	got := Info{GoVersion: info.GoVersion}
	if got.GoVersion == "" {
		got.GoVersion = runtime.Version()
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case settingRevision:
			got.Commit = setting.Value
		case settingTime:
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				got.CommitTime = t
			}
		case settingModified:
			if modified, err := strconv.ParseBool(setting.Value); err == nil {
				got.Modified = modified
			}
		}
	}

	return got
}
