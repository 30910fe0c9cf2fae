package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		current   string
		want      bool
	}{
		{name: "major bump", candidate: "2.0.0", current: "1.0.0", want: true},
		{name: "minor bump", candidate: "1.1.0", current: "1.0.0", want: true},
		{name: "patch bump", candidate: "1.0.1", current: "1.0.0", want: true},
		{name: "older", candidate: "0.9.0", current: "1.0.0", want: false},
		{name: "equal", candidate: "1.0.0", current: "1.0.0", want: false},
		{name: "release after prerelease", candidate: "1.0.0", current: "1.0.0-rc.1", want: true},
		{name: "prerelease before release", candidate: "1.0.0-rc.1", current: "1.0.0", want: false},
		{name: "v prefix", candidate: "v1.2.0", current: "1.1.9", want: true},
		{name: "empty candidate", candidate: "", current: "1.0.0", want: false},
		{name: "empty current", candidate: "1.0.0", current: "", want: true},
		{name: "non-semver falls back to string order", candidate: "format-b", current: "format-a", want: true},
		{name: "non-semver older", candidate: "format-a", current: "format-b", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsNewerVersion(tt.candidate, tt.current))
		})
	}
}
