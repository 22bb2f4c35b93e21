package core

import (
	"strings"

	"github.com/google/uuid"
)

// RunName builds a run name of the form <jobType>_<8 hex chars>.
func RunName(jobType string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return jobType + "_" + hex[:8]
}
