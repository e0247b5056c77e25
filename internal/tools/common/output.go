package common

import (
	"encoding/json"
	"io"
	"time"
)

// CIResult is the single JSON document an accountctl command prints in --ci mode.
type CIResult struct {
	OK         bool     `json:"ok"`
	Tool       string   `json:"tool"`
	Command    string   `json:"command"`
	DurationMS int64    `json:"duration_ms"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func NewCIResult(tool, command string, elapsed time.Duration, details []string, err error) CIResult {
	result := CIResult{
		OK:         err == nil,
		Tool:       tool,
		Command:    command,
		DurationMS: elapsed.Milliseconds(),
		Details:    details,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func WriteCIResult(w io.Writer, result CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
