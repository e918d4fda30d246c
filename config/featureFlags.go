package config

import (
	"os"
	"strings"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// AutoEmailReceipt sends the CAFE email automatically after a successful
// submission instead of waiting for an explicit request.
//
// Set via env:
// - FE_AUTO_EMAIL=true
func AutoEmailReceipt() bool {
	return envBool("FE_AUTO_EMAIL")
}

// DiagnosticsEnabled exposes the line-resolution report endpoint. The report
// shows which predicate matched each candidate line; useful when the external
// table schema drifts.
//
// Set via env:
// - FE_DIAGNOSTICS=true
func DiagnosticsEnabled() bool {
	return envBool("FE_DIAGNOSTICS")
}
