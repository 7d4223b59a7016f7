//go:build !windows

package platform

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// loadedModules lists the shared objects mapped into the current process
func loadedModules() []string {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := make(map[string]bool)
	var names []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || !strings.HasPrefix(fields[5], "/") {
			continue
		}
		name := filepath.Base(fields[5])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
