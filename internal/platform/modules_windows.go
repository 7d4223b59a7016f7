//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// loadedModules lists the module names of the current process
func loadedModules() []string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, windows.GetCurrentProcessId())
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var names []string
	for err = windows.Module32First(snapshot, &entry); err == nil; err = windows.Module32Next(snapshot, &entry) {
		names = append(names, windows.UTF16ToString(entry.Module[:]))
	}
	return names
}
