package fsutil

// Permissions for everything the launcher writes into the installation root.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	DirModeDefault  = 0o755 // drwxr-xr-x
)
