package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is an OS/architecture pair. Either side may be "any".
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the normalized platform of the running binary.
func CurrentPlatform() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Matches checks if this platform matches the target platform.
// An empty field is treated like "any".
func (p Platform) Matches(target Platform) bool {
	return matchPart(NormalizeOS(p.OS), NormalizeOS(target.OS)) &&
		matchPart(NormalizeArch(p.Arch), NormalizeArch(target.Arch))
}

func matchPart(a, b string) bool {
	return a == "" || b == "" || a == AnyOS || b == AnyOS || a == b
}

// String returns a string representation of the platform.
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// NormalizeOS maps OS name variations onto the names used in registry indexes.
func NormalizeOS(os string) string {
	os = strings.ToLower(strings.TrimSpace(os))
	switch os {
	case "darwin", "osx", "mac":
		return OSMacOS
	case "win", "win32", "windows":
		return OSWindows
	default:
		return os
	}
}

// NormalizeArch maps architecture name variations onto Go's names.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "x86_64", "x64":
		return ArchAMD64
	case "x86", "i386", "i686":
		return Arch386
	case "aarch64":
		return ArchARM64
	default:
		return arch
	}
}

// FamilyOf returns the install root convention for an OS name.
func FamilyOf(os string) Family {
	if NormalizeOS(os) == OSWindows {
		return FamilyWindows
	}
	return FamilyUnix
}
