package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${AZURE_CLIENT_SECRET} → value of AZURE_CLIENT_SECRET environment variable
//   - $ADO_ORGANIZATION → value of ADO_ORGANIZATION environment variable
//   - ${ADO_BASE_URL}/${ADO_ORGANIZATION} → both variables expanded into one URL
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
