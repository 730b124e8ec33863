package eval

// #region match-config
// MatchConfig holds the tolerances used when comparing a prediction to its reference.
type MatchConfig struct {
	AbsoluteTolerance float64           `yaml:"absolute_tolerance"` // numbers within this distance match
	RelativeTolerance float64           `yaml:"relative_tolerance"` // or within this fraction of the larger magnitude
	Epsilon           float64           `yaml:"epsilon"`            // floor for the relative denominator
	RenameSimilarity  float64           `yaml:"rename_similarity"`  // min similarity for a missing/extra pair to count as a rename
	RenameCredit      float64           `yaml:"rename_credit"`      // partial credit per rename, never 1
	Synonyms          map[string]string `yaml:"synonyms"`           // extra domain synonyms on top of the built-in table
}

// DefaultMatchConfig returns the standard golden-test tolerances.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		AbsoluteTolerance: 1.0,
		RelativeTolerance: 0.05,
		Epsilon:           1e-9,
		RenameSimilarity:  0.92,
		RenameCredit:      0.5,
	}
}

// #endregion match-config

// #region rename
// Rename is a missing/extra token pair that differs only by a near-miss spelling.
// It is surfaced for synonym learning and scored with partial credit only.
type Rename struct {
	Missing    string  `json:"missing"`
	Extra      string  `json:"extra"`
	Similarity float64 `json:"similarity"`
}

// #endregion rename

// #region match-result
// MatchResult is the outcome of scoring one (reference, prediction) pair.
type MatchResult struct {
	Score          float64  `json:"score"`
	Missing        []string `json:"missing"`
	Extra          []string `json:"extra"`
	Renames        []Rename `json:"renames,omitempty"`
	ExactMatches   int      `json:"exact_matches"`
	NumericMatches int      `json:"numeric_matches"`
	Error          string   `json:"error,omitempty"`
}

// #endregion match-result
