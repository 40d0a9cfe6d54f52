package config

// Config is the root configuration structure for git-patchdance.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// EngineConfig tunes the Patch Engine's matching and transaction
// behavior (spec.md §4, §6).
type EngineConfig struct {
	// FuzzyMatchMinConfidence is the minimum confidence score (0-100) a
	// candidate hunk location must reach to be accepted during fuzzy
	// matching in apply_patch.
	FuzzyMatchMinConfidence int `mapstructure:"fuzzy_match_min_confidence" yaml:"fuzzy_match_min_confidence"`

	// FuzzyMatchMaxContextMismatch caps how many context lines may
	// differ from the hunk's recorded context before a candidate is
	// rejected outright.
	FuzzyMatchMaxContextMismatch int `mapstructure:"fuzzy_match_max_context_mismatch" yaml:"fuzzy_match_max_context_mismatch"`

	// BackupRetentionDays is how long refs/patchdance/backup/* refs are
	// kept before they become eligible for pruning.
	BackupRetentionDays int `mapstructure:"backup_retention_days" yaml:"backup_retention_days"`

	// ElideEmptyCommits drops a rewritten commit entirely when its tree
	// equals its sole parent's tree.
	ElideEmptyCommits bool `mapstructure:"elide_empty_commits" yaml:"elide_empty_commits"`

	// TransactionTimeoutSeconds bounds how long a single rewrite
	// transaction may run before it is cancelled and rolled back.
	TransactionTimeoutSeconds int `mapstructure:"transaction_timeout_seconds" yaml:"transaction_timeout_seconds"`

	// CommitGraphWalkLimit caps how many commits WalkHistory will visit
	// in one call. 0 means unlimited.
	CommitGraphWalkLimit int `mapstructure:"commit_graph_walk_limit" yaml:"commit_graph_walk_limit"`
}

// StorageConfig locates the operation journal database.
type StorageConfig struct {
	BasePath     string `mapstructure:"base_path" yaml:"base_path"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// LoggingConfig configures the zerolog-backed Logger.
type LoggingConfig struct {
	Level    string `mapstructure:"level" yaml:"level"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	Console  bool   `mapstructure:"console" yaml:"console"`
}
