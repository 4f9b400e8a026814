// Package version carries the build identification injected by the linker,
// for example
//
//	go build -ldflags "-X github.com/TeamNorCal/wavelamp/version.GitHash=`git rev-parse HEAD` -X github.com/TeamNorCal/wavelamp/version.BuildTime=`date -u +%FT%T`"
package version

var (
	// BuildTime is the UTC time the binary was linked
	BuildTime string
	// GitHash is the commit the binary was built from
	GitHash string
)
