package platform

import (
	"os"
	"strings"
)

// overlayModule is the name fragment of the Mod Organizer 2 virtual filesystem library
const overlayModule = "usvfs"

// overlayEnv are set by Mod Organizer 2 for the programs it launches
var overlayEnv = []string{"MO2_PATH", "MO2_INSTANCE"}

// OverlayDetector reports whether a virtual filesystem overlay already
// merges mod files into the game data directory
type OverlayDetector func() bool

// OverlayActive reports whether the process runs under the MO2 overlay:
// a loaded module whose name contains "usvfs", or an MO2 environment variable
func OverlayActive() bool {
	for _, name := range loadedModules() {
		if strings.Contains(strings.ToLower(name), overlayModule) {
			return true
		}
	}

	for _, key := range overlayEnv {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

// NoOverlay is a detector that never reports an overlay
func NoOverlay() bool {
	return false
}
