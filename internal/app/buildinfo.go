package app

import "fmt"

// Release builds set these with -ldflags "-X .../internal/app.BuildVersion=...".
var (
    BuildVersion = "0.0.0-dev"
    BuildCommit  = "unknown"
    BuildDate    = "unknown"
)

// VersionString is the line printed by -version.
func VersionString() string {
    return fmt.Sprintf("pdfxbench %s (%s, built %s)", BuildVersion, BuildCommit, BuildDate)
}
