package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
)

// FormatError formats errors based on output mode
func FormatError(err error, mode Mode, color bool) string {
	if err == nil {
		return ""
	}
	switch mode {
	case ModeJSON:
		return formatErrorJSON(err)
	default:
		return formatErrorText(err, color)
	}
}

func formatErrorJSON(err error) string {
	response := map[string]any{
		"error":   err.Error(),
		"details": "",
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		response = map[string]any{
			"code":    cliErr.Code,
			"error":   cliErr.Message,
			"details": cliErr.Details,
		}
		if len(cliErr.Context) > 0 {
			response["context"] = cliErr.Context
		}
	}
	data, mErr := json.MarshalIndent(response, "", "  ")
	if mErr != nil {
		return `{"error": "JSON marshaling failed", "details": ""}`
	}
	return string(data)
}

func formatErrorText(err error, color bool) string {
	message, details := err.Error(), ""
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		message, details = cliErr.Message, cliErr.Details
	}
	if !color {
		if details != "" {
			return fmt.Sprintf("Error: %s\nDetails: %s", message, details)
		}
		return "Error: " + message
	}
	result := errorStyle.Render("✗ " + message)
	if details != "" {
		result += "\n" + detailStyle.Render("Details: "+details)
	}
	return result
}

// OutputError writes err to w in the appropriate format
func OutputError(w io.Writer, err error, mode Mode) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, mode, ShouldUseColor()))
}

// OutputJSON writes v as indented JSON.
func OutputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Field renders a "label: value" line for text output.
func Field(label string, value any, color bool) string {
	if color {
		return fmt.Sprintf("%s %v", labelStyle.Render(label+":"), value)
	}
	return fmt.Sprintf("%s: %v", label, value)
}
