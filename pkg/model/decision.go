package model

// Action is what the resolver decided for one artifact.
type Action string

const (
	// ActionInstall indicates no local copy exists.
	ActionInstall Action = "install"
	// ActionUpdate indicates a local copy exists but is outdated or invalid.
	ActionUpdate Action = "update"
	// ActionSkip indicates the local copy is current.
	ActionSkip Action = "skip"
)

// InstallationReason tracks why a package was installed.
type InstallationReason string

const (
	// InstallationReasonManual marks packages named in the configuration.
	InstallationReasonManual InstallationReason = "manual"
	// InstallationReasonAutomatic marks packages pulled in as dependencies.
	InstallationReasonAutomatic InstallationReason = "automatic"
)

// Decision is the resolver's per-artifact output.
type Decision struct {
	Name       string
	Action     Action
	Reason     string
	Descriptor ArtifactDescriptor
	// Expected is the digest a download must match: the catalog checksum or a
	// digest-shaped entity tag. Empty means the download is accepted as received.
	Expected string
	// LocalPath is where the artifact lives (or will live) after Apply.
	LocalPath string
	// Stale lists local files superseded by this decision. They are removed after the
	// new file is in place.
	Stale []string
	// InstallationReason is set for registry packages.
	InstallationReason InstallationReason
}

// NeedsDownload reports whether Apply has work to do for this decision.
func (d Decision) NeedsDownload() bool {
	return d.Action == ActionInstall || d.Action == ActionUpdate
}
