package golden

// #region types
// TestCase is one immutable golden fixture. Versioning happens outside this
// module; the runner only reads cases.
type TestCase struct {
	ID        string   `json:"id" yaml:"id" validate:"required"`
	Input     string   `json:"input" yaml:"input" validate:"required"`
	Reference string   `json:"reference" yaml:"reference" validate:"required"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,required"`
}

// CaseSet is the top-level fixture document.
type CaseSet struct {
	Version string     `json:"version" yaml:"version" validate:"required"`
	Cases   []TestCase `json:"cases" yaml:"cases" validate:"required,min=1,dive"`
}

// #endregion types
