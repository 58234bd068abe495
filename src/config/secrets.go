package config

import (
	"fmt"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// ScanSecrets looks for literal secrets in a raw document. Credential fields
// should reference the environment (${NAME}); anything the detector matches
// is reported as a warning with its line number.
func ScanSecrets(data []byte) ([]string, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}

	hits := detector.DetectBytes(data)
	if len(hits) == 0 {
		return nil, nil
	}

	warnings := make([]string, 0, len(hits))
	for _, h := range hits {
		warnings = append(warnings, fmt.Sprintf("line %d: possible literal secret: %s (%s)",
			h.StartLine+1, // gitleaks is 0-indexed
			h.Description, h.RuleID))
	}
	return warnings, nil
}
