package version

import (
	"runtime"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromBuildInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info *debug.BuildInfo
		want Info
	}{
		{
			name: "all settings",
			info: &debug.BuildInfo{
				GoVersion: "go1.24.1",
				Settings: []debug.BuildSetting{
					{Key: "vcs", Value: "git"},
					{Key: "vcs.revision", Value: "4f1c2a9"},
					{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			want: Info{
				Commit:     "4f1c2a9",
				CommitTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
				Modified:   true,
				GoVersion:  "go1.24.1",
			},
		},
		{
			name: "invalid values ignored",
			info: &debug.BuildInfo{
				GoVersion: "go1.24.1",
				Settings: []debug.BuildSetting{
					{Key: "vcs.time", Value: "yesterday"},
					{Key: "vcs.modified", Value: "maybe"},
				},
			},
			want: Info{GoVersion: "go1.24.1"},
		},
		{
			name: "missing go version",
			info: &debug.BuildInfo{},
			want: Info{GoVersion: runtime.Version()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, fromBuildInfo(tt.info))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	info := Get()
	require.NotEmpty(t, info.GoVersion)
	require.Equal(t, info, Get(), "computed once")
}
