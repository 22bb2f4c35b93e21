package cleaning

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Params are the per-invocation arguments of the cleaning step.
type Params struct {
	InputArtifact     string  `json:"input_artifact"     validate:"required"`
	OutputArtifact    string  `json:"output_artifact"    validate:"required"`
	OutputType        string  `json:"output_type"        validate:"required"`
	OutputDescription string  `json:"output_description"`
	MinPrice          float64 `json:"min_price"`
	MaxPrice          float64 `json:"max_price"`
}

// Validate checks that every artifact argument is present and that both
// bounds are ordered numbers. Infinite bounds are open ends. Bounds are not
// cross-checked; an inverted range keeps no rows.
func (p *Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid step parameters: %w", err)
	}
	if math.IsNaN(p.MinPrice) {
		return fmt.Errorf("invalid step parameters: min_price must be a number, got NaN")
	}
	if math.IsNaN(p.MaxPrice) {
		return fmt.Errorf("invalid step parameters: max_price must be a number, got NaN")
	}
	return nil
}

// RunConfig returns the parameters as they are recorded on the run.
func (p *Params) RunConfig() map[string]any {
	return map[string]any{
		"input_artifact":     p.InputArtifact,
		"output_artifact":    p.OutputArtifact,
		"output_type":        p.OutputType,
		"output_description": p.OutputDescription,
		"min_price":          recordedBound(p.MinPrice),
		"max_price":          recordedBound(p.MaxPrice),
	}
}

// recordedBound keeps finite bounds numeric. JSON has no literal for the
// others, so they are stored as their text form.
func recordedBound(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
