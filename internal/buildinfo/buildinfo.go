// Package buildinfo exposes version metadata stamped via -ldflags.
package buildinfo

var (
	Service = "routeopt"
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"service": Service,
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
