package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

// jsonReport is the layout of the machine readable result file.
type jsonReport struct {
	Status types.TestStatus `json:"status"`
	*types.RunResult
}

// WriteJSON writes result to path as indented JSON, creating parent
// directories as needed.
func WriteJSON(path string, result *types.RunResult) error {
	if result == nil {
		return fmt.Errorf("no result to write")
	}
	data, err := json.MarshalIndent(jsonReport{Status: result.Status(), RunResult: result}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
