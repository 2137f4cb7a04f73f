// Package logging provides the package-level debug/info/warn helpers used
// throughout the bridge, in place of a structured logging library — none
// appears anywhere in the reference corpus this module was built from.
package logging

import (
	"log"
	"os"
)

var debugEnabled = os.Getenv("NFC_BRIDGE_DEBUG") != ""

// Debugf logs a formatted debug message when NFC_BRIDGE_DEBUG is set.
func Debugf(format string, args ...any) {
	if !debugEnabled {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// Debugln logs a debug message when NFC_BRIDGE_DEBUG is set.
func Debugln(args ...any) {
	if !debugEnabled {
		return
	}
	log.Println(append([]any{"[DEBUG]"}, args...)...)
}

// Infof always logs a formatted informational message.
func Infof(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

// Warnf always logs a formatted warning message.
func Warnf(format string, args ...any) {
	log.Printf("[WARN] "+format, args...)
}
