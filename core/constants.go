package core

const (
	CLIName = "surfacer"
	AUTHOR  = "dp2pwn"
	VERSION = "v1.0.0"
)

// DefaultProbeParams are appended by the fuzzer's parameter-position
// variants. Kept short on purpose; every entry multiplies store growth.
var DefaultProbeParams = []string{"id", "page", "debug", "token"}
