// Package vars holds build-time variables populated via the linker (ldflags):
//
//	-X github.com/woozymasta/srcquery/internal/vars.Version=v1.2.3
//	-X github.com/woozymasta/srcquery/internal/vars.Commit=$(git rev-parse HEAD)
//	-X github.com/woozymasta/srcquery/internal/vars.buildTime=$(date -u +%FT%TZ)
package vars

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// Name of the binary, also the product token of the user agent
	Name = "srcquery"

	// URL of the repository
	URL = "https://github.com/woozymasta/srcquery"
)

var (
	// Version is the git tag of the build
	Version = "dev"

	// Commit is the git SHA of the build
	Commit = "unknown"

	// buildTime is an RFC3339 timestamp, parsed by BuiltAt
	buildTime string
)

// BuildInfo is the payload of the version endpoint.
type BuildInfo struct {
	BuiltAt time.Time `json:"built_at,omitzero"`
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Commit  string    `json:"commit"`
	URL     string    `json:"url"`
}

// Info returns the build metadata of the running binary.
func Info() BuildInfo {
	return BuildInfo{
		Name:    Name,
		Version: Version,
		Commit:  Commit,
		URL:     URL,
		BuiltAt: BuiltAt(),
	}
}

// BuiltAt returns the build time, or the zero time when it was not set or is invalid.
func BuiltAt() time.Time {
	t, err := time.Parse(time.RFC3339, buildTime)
	if err != nil {
		return time.Time{}
	}

	return t.UTC()
}

// Print writes the output of the -v flag to stdout.
func Print() {
	Fprint(os.Stdout)
}

// Fprint writes one "key: value" line per build field.
func Fprint(w io.Writer) {
	info := Info()

	built := "unknown"
	if !info.BuiltAt.IsZero() {
		built = info.BuiltAt.Format(time.RFC3339)
	}

	for _, kv := range [][2]string{
		{"name", info.Name},
		{"version", info.Version},
		{"commit", info.Commit},
		{"built", built},
		{"url", info.URL},
	} {
		_, _ = fmt.Fprintf(w, "%-9s%s\n", kv[0]+":", kv[1])
	}
}

// UserAgent identifies the binary in outbound HTTP requests.
func UserAgent() string {
	return Name + "/" + Version + " (+" + URL + ")"
}
