package audio_archiver

import (
	"time"

	"github.com/alanbriolat/audio-archiver/catalog"
)

// LockFilename is the lock file in the target directory that stops two runs working on it at once.
const LockFilename = ".bf-download.lock"

type Options struct {
	TargetDir string
	// Preferred is tried first when choosing a format for each title.
	Preferred catalog.FormatTag
	// DryRun reports what would be fetched using only cached filenames: no probes, no transfers, nothing written.
	DryRun       bool
	ProbeTimeout time.Duration
	Progress     ProgressFunc
}

func DefaultOptions() Options {
	return Options{
		TargetDir:    ".",
		Preferred:    catalog.FormatMP3,
		ProbeTimeout: DefaultProbeTimeout,
	}
}
