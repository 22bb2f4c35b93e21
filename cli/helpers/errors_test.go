package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/compozy/basic-cleaning/engine/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	notFound := &artifact.NotFoundError{Ref: "sample.csv:latest"}
	upload := &artifact.UploadError{Name: "clean_sample.csv", Op: "upload", Cause: errors.New("refused")}
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"not found", notFound, ExitNotFound},
		{"wrapped not found", fmt.Errorf("step: %w", notFound), ExitNotFound},
		{"upload", upload, ExitUpload},
		{"categorized upload", CategorizeError(upload), ExitUpload},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tc := range cases {
		t.Run("Should map "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestCategorizeError(t *testing.T) {
	t.Run("Should attach the reference to not found errors", func(t *testing.T) {
		err := CategorizeError(&artifact.NotFoundError{Ref: "sample.csv:v3"})
		var cliErr *CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "ARTIFACT_NOT_FOUND", cliErr.Code)
		assert.Equal(t, "sample.csv:v3", cliErr.Context["reference"])
		assert.ErrorIs(t, err, artifact.ErrNotFound)
	})
	t.Run("Should attach the failing stage to upload errors", func(t *testing.T) {
		err := CategorizeError(&artifact.UploadError{Name: "clean_sample.csv", Op: "confirm"})
		var cliErr *CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "UPLOAD_FAILED", cliErr.Code)
		assert.Equal(t, "confirm", cliErr.Context["stage"])
	})
	t.Run("Should map context errors", func(t *testing.T) {
		err := CategorizeError(fmt.Errorf("waiting: %w", context.DeadlineExceeded))
		var cliErr *CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "OPERATION_TIMEOUT", cliErr.Code)
		assert.Equal(t, ExitFailure, ExitCode(err))
	})
	t.Run("Should pass unknown errors through", func(t *testing.T) {
		orig := errors.New("boom")
		assert.Same(t, orig, CategorizeError(orig))
		assert.NoError(t, CategorizeError(nil))
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Should render CLI errors as JSON", func(t *testing.T) {
		err := NewCliError("UPLOAD_FAILED", "Output artifact could not be published", "store unreachable")
		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(FormatError(err, ModeJSON, false)), &out))
		assert.Equal(t, "UPLOAD_FAILED", out["code"])
		assert.Equal(t, "store unreachable", out["details"])
	})
	t.Run("Should render plain text without color", func(t *testing.T) {
		err := NewCliError("ARTIFACT_NOT_FOUND", "Input artifact could not be fetched", "sample.csv")
		assert.Equal(t, "Error: Input artifact could not be fetched\nDetails: sample.csv", FormatError(err, ModeText, false))
		assert.Equal(t, "Error: boom", FormatError(errors.New("boom"), ModeText, false))
	})
	t.Run("Should return empty string for nil", func(t *testing.T) {
		assert.Empty(t, FormatError(nil, ModeJSON, false))
	})
}
