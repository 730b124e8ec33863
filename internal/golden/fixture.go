package golden

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
)

// recordValidate checks tagged records read from disk.
var recordValidate = validator.New(validator.WithRequiredStructEnabled())

// #region decode
// DecodeFile strictly decodes a JSON or YAML file into v, chosen by extension.
// Unknown fields and trailing documents are rejected. Every failure is a data
// error: a record that cannot be read must never become a decision input.
func DecodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.NewDataError(fmt.Errorf("read %s: %w", path, err))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, v)
	default:
		err = DecodeJSON(data, v)
	}
	if err != nil {
		return apperr.NewDataError(fmt.Errorf("parse %s: %w", path, err))
	}
	return nil
}

// DecodeJSON decodes exactly one JSON value, rejecting unknown fields.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

func decodeYAML(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.New("unexpected extra YAML document")
	}
	return nil
}

// Validate runs struct-tag validation and wraps failures as data errors.
func Validate(v any) error {
	if err := recordValidate.Struct(v); err != nil {
		return apperr.NewDataError(err)
	}
	return nil
}

// #endregion decode

// #region loader
// LoadCases reads, validates and returns a fixture file. Case IDs must be unique.
func LoadCases(path string) (*CaseSet, error) {
	var set CaseSet
	if err := DecodeFile(path, &set); err != nil {
		return nil, err
	}
	if err := Validate(&set); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	seen := make(map[string]bool, len(set.Cases))
	for _, c := range set.Cases {
		if seen[c.ID] {
			return nil, apperr.DataErrorf("fixture %s: duplicate case id %q", path, c.ID)
		}
		seen[c.ID] = true
	}
	return &set, nil
}

// #endregion loader
