package cli

// Default values for CLI flags and configurations.
const (
	// EnvHome overrides the installation root.
	EnvHome = "COUPLER_HOME"
	// EnvAppData is the Windows roaming application data directory.
	EnvAppData = "APPDATA"
	// PackagesDir holds registry packages inside the installation root.
	PackagesDir = "packages"
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)
