package runner

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/golden"
)

// #region recorded
// Recording is the on-disk form of previously captured predictions, used to
// replay a run offline without calling the backend.
type Recording struct {
	Version     string               `json:"version" yaml:"version" validate:"required"`
	Predictions []RecordedPrediction `json:"predictions" yaml:"predictions" validate:"dive"`
}

// RecordedPrediction is one captured backend answer keyed by the case input.
type RecordedPrediction struct {
	Input      string `json:"input" yaml:"input" validate:"required"`
	Prediction string `json:"prediction" yaml:"prediction"`
}

// RecordedGenerator answers from a recording. Unknown inputs fail permanently.
type RecordedGenerator struct {
	predictions map[string]string
}

// NewRecordedGenerator indexes a recording by input. Later entries win.
func NewRecordedGenerator(rec Recording) *RecordedGenerator {
	m := make(map[string]string, len(rec.Predictions))
	for _, p := range rec.Predictions {
		m[p.Input] = p.Prediction
	}
	return &RecordedGenerator{predictions: m}
}

// LoadRecording reads and validates a recording file.
func LoadRecording(path string) (*RecordedGenerator, error) {
	var rec Recording
	if err := golden.DecodeFile(path, &rec); err != nil {
		return nil, err
	}
	if err := golden.Validate(&rec); err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return NewRecordedGenerator(rec), nil
}

func (g *RecordedGenerator) Generate(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, ok := g.predictions[input]
	if !ok {
		return "", apperr.DataErrorf("no recorded prediction for input %q", input)
	}
	return out, nil
}

// #endregion recorded
