package job

import (
	"fmt"
	"sort"
	"strings"

	"github.com/healthmetrics/cascade/internal/identity"
)

// NotReadyError reports that a job cannot start because declared inputs are
// missing. It carries the structured missing-input mapping so a caller can
// decide to wait, re-check, or abort just that job.
type NotReadyError struct {
	Job     identity.JobID
	Missing map[string]string
}

func (e *NotReadyError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for name := range e.Missing {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Missing[name]))
	}
	return fmt.Sprintf("job %s not ready, missing inputs: %s", e.Job, strings.Join(parts, "; "))
}
