// Package platform identifies the operating system family the launcher runs on and
// filters registry artifacts by OS and architecture.
package platform

const (
	// OSWindows represents the Windows operating system.
	OSWindows = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"
	// OSMacOS represents macOS. runtime.GOOS reports it as "darwin".
	OSMacOS = "macos"
	// AnyOS matches every operating system.
	AnyOS = "any"

	// ArchAMD64 represents the AMD64 (x86_64) architecture.
	ArchAMD64 = "amd64"
	// Arch386 represents the 32-bit x86 architecture.
	Arch386 = "386"
	// ArchARM64 represents the ARM64 (AArch64) architecture.
	ArchARM64 = "arm64"
	// AnyArch matches every architecture.
	AnyArch = "any"
)

// Family groups operating systems by install root convention.
type Family string

const (
	// FamilyWindows keeps application data under %APPDATA%.
	FamilyWindows Family = "windows"
	// FamilyUnix keeps application data in a dot directory under $HOME.
	FamilyUnix Family = "unix"
)
