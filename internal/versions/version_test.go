package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	vcs := func() (string, string) { return "0123456789abcdef", "2026-03-01T10:20:30Z" }

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		wantVersion   string
		wantCommit    string
		wantBuildDate string
	}{
		{
			name:          "release build keeps ldflags values",
			version:       "v1.2.3",
			commit:        "abc",
			buildDate:     "2026-01-02T03:04:05Z",
			wantVersion:   "v1.2.3",
			wantCommit:    "abc",
			wantBuildDate: "2026-01-02 03:04:05 UTC",
		},
		{
			name:          "dev build reads vcs settings",
			version:       "dev",
			commit:        unknown,
			buildDate:     unknown,
			wantVersion:   "build-01234567",
			wantCommit:    "0123456789abcdef",
			wantBuildDate: "2026-03-01 10:20:30 UTC",
		},
		{
			name:          "dev build keeps explicit commit",
			version:       "dev",
			commit:        "feedface",
			buildDate:     unknown,
			wantVersion:   "build-feedface",
			wantCommit:    "feedface",
			wantBuildDate: "2026-03-01 10:20:30 UTC",
		},
		{
			name:          "unparseable build date is kept",
			version:       "v0.1.0",
			commit:        "abc",
			buildDate:     "yesterday",
			wantVersion:   "v0.1.0",
			wantCommit:    "abc",
			wantBuildDate: "yesterday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := buildInfo(tt.version, tt.commit, tt.buildDate, vcs)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantCommit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
		})
	}
}

func TestBuildInfo_NoVCS(t *testing.T) {
	t.Parallel()

	info := buildInfo("dev", unknown, unknown, nil)
	assert.Equal(t, "build-unknown", info.Version)
	assert.Equal(t, unknown, info.BuildDate)
	assert.Contains(t, info.String(), "build-unknown")
}
