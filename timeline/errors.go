package timeline

import "fmt"

// ImportError is a structured timeline import failure. LineNumber is 0 when
// the failure is not tied to a specific source line.
type ImportError struct {
	Message    string `json:"message"`
	LineNumber int    `json:"line_number,omitempty"`
	Code       string `json:"code"`
}

func (e *ImportError) Error() string {
	if e.LineNumber == 0 {
		return e.Message
	}
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Message)
}

func newImportError(code, message string, lineNumber int) *ImportError {
	return &ImportError{Message: message, LineNumber: lineNumber, Code: code}
}
