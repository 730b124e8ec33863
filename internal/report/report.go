// Package report renders the single JSON document each CLI invocation emits.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
)

// KindError is the document kind for operational failures.
const KindError = "error"

// #region document
// Document is the action-boundary envelope consumed by downstream dispatchers.
type Document struct {
	Kind        string     `json:"kind"`
	GeneratedAt time.Time  `json:"generated_at"`
	ExitCode    int        `json:"exit_code"`
	Payload     any        `json:"payload,omitempty"`
	Error       *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes an operational failure.
type ErrorBody struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// New builds a decision document.
func New(kind string, exitCode int, payload any, now time.Time) Document {
	return Document{Kind: kind, GeneratedAt: now.UTC(), ExitCode: exitCode, Payload: payload}
}

// FromError builds an error document. The exit code is always operational.
func FromError(err error, now time.Time) Document {
	return Document{
		Kind:        KindError,
		GeneratedAt: now.UTC(),
		ExitCode:    apperr.ExitCode(err),
		Error:       &ErrorBody{Class: apperr.Class(err), Message: err.Error()},
	}
}

// ExitCodeFor maps a favorable flag onto the exit-code contract.
func ExitCodeFor(favorable bool) int {
	if favorable {
		return apperr.ExitFavorable
	}
	return apperr.ExitUnfavorable
}

// #endregion document

// #region encode
// Encode renders d as indented JSON.
func (d Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", d.Kind, err)
	}
	return data, nil
}

// Write encodes d followed by a newline.
func Write(w io.Writer, d Document) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// #endregion encode
