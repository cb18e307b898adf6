// Package version carries build-time version metadata for the chameleon
// CLI.
package version

// Version, GitCommit and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/nsg-ethz/chameleon/pkg/version.Version=v1.0.0 \
//	  -X github.com/nsg-ethz/chameleon/pkg/version.GitCommit=abc1234"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a one-line human-readable version summary.
func Info() string {
	if Version == "dev" {
		return "chameleon dev build"
	}
	return "chameleon " + Version + " (" + GitCommit + ", " + BuildDate + ")"
}
