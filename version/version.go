package version

// overridden at build time via -ldflags
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	BuiltBy   = "local"
	SharedLib = ""
)

var FullVersion = composeVersion()

func composeVersion() string {
	ret := Version
	if Commit != "none" {
		ret += " (" + Commit + ")"
	}
	return ret
}
