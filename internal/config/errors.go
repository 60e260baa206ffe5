package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigurationError is a configuration file that could not be used.
type ConfigurationError struct {
	FilePath   string
	ErrorType  string // io, parse
	Message    string
	LineNumber int
}

func (ce *ConfigurationError) Error() string {
	if ce.LineNumber > 0 {
		return fmt.Sprintf("%s error in %s (line %d): %s", ce.ErrorType, ce.FilePath, ce.LineNumber, ce.Message)
	}
	return fmt.Sprintf("%s error in %s: %s", ce.ErrorType, ce.FilePath, ce.Message)
}

func newParseError(path string, err error) *ConfigurationError {
	ce := &ConfigurationError{FilePath: path, ErrorType: "parse", Message: err.Error()}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		ce.Message = strings.Join(typeErr.Errors, "; ")
	}
	// yaml.v3 syntax errors read "yaml: line N: ...".
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		ce.LineNumber = line
	}
	return ce
}
