// Package constants defines shared constant values for nixpr.
package constants

// NixprHome is the directory name for nixpr state under the user's home
// directory.
const NixprHome = ".nixpr"

// CacheDirName is the directory name for nixpr build directories under the
// user's cache directory (see os.UserCacheDir).
const CacheDirName = "nixpr"

// Configuration file names.
const (
	// GlobalConfigName is the name of the global configuration file,
	// located in the nixpr home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the per-checkout configuration file,
	// located in the nixpkgs checkout root.
	ProjectConfigName = ".nixpr.yaml"
)

// Logging configuration.
const (
	// LogsDir is the directory name for log files under the nixpr home.
	LogsDir = "logs"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "nixpr.log"

	// LogMaxSizeMB is the maximum log file size before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files to retain.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age of rotated log files.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated log files.
	LogCompress = true
)

// Worktree layout inside a build directory.
const (
	// WorktreeDirName is the name of the nixpkgs worktree inside a build
	// directory.
	WorktreeDirName = "nixpkgs"

	// ReportDirName is the subdirectory holding the rendered report and
	// per-attribute build logs.
	ReportDirName = "report"
)

// Ref slots used by the revision fetcher. Slot i maps to
// refs/nixpr/<i> in the local repository.
const RefSlotPrefix = "refs/nixpr/"

// Report artifact names.
const (
	ReportMarkdownName = "report.md"
	ReportJSONName     = "report.json"
	BuildLogsDirName   = "logs"
	ResultsDirName     = "results"
	FailedResultsDir   = "failed_results"
)

// Directory and file permission constants.
const (
	DirPerm  = 0o750
	FilePerm = 0o600
)
