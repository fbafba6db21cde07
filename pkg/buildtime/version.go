// Package buildtime tells the version of binaries.
//
// Values are set at build time:
//
//	go build -ldflags "-X github.com/fairtrace/fairtrace/pkg/buildtime.version=v1.2.0 -X github.com/fairtrace/fairtrace/pkg/buildtime.revision=$(git rev-parse HEAD)"
package buildtime

var (
	version  = "dev"
	revision = "unknown"
)

// version string when this fairtrace has been built.
func VERSION() string {
	return version
}

func GIT_REVISION() string {
	return revision
}

func VersionString() string {
	return version + " (commit: " + revision + ")"
}
