package mcphost

import (
	"fmt"
	"os"
	"strings"
)

// secretScheme prefixes credential references embedded in server config.
// Supported forms:
//
//	secret://env/VAR
//	secret://file/PATH
//	secret://file/PATH#FIELD   (FIELD extracted from a dotenv-formatted file)
//	secret://gcp/NAME[#VERSION]  (recognized but unsupported)
//
// Any value without the prefix passes through unchanged.
const secretScheme = "secret://"

// ResolveSecrets rewrites every secret:// reference in the config's Env and
// Headers maps with its literal value. Resolution happens in place at connect
// time; resolved values are never logged.
func ResolveSecrets(cfg *ServerConfig) error {
	for key, value := range cfg.Env {
		resolved, err := ResolveSecret(value)
		if err != nil {
			return fmt.Errorf("env %q: %w", key, err)
		}
		cfg.Env[key] = resolved
	}
	for key, value := range cfg.Headers {
		resolved, err := ResolveSecret(value)
		if err != nil {
			return fmt.Errorf("header %q: %w", key, err)
		}
		cfg.Headers[key] = resolved
	}
	return nil
}

// ResolveSecret resolves a single secret:// reference to its literal value.
// Non-secret values are returned unchanged.
func ResolveSecret(value string) (string, error) {
	if !strings.HasPrefix(value, secretScheme) {
		return value, nil
	}
	ref := strings.TrimPrefix(value, secretScheme)
	provider, rest, ok := strings.Cut(ref, "/")
	if !ok || rest == "" {
		return "", &SecretError{Ref: value, Reason: "malformed secret reference"}
	}
	path, field, _ := strings.Cut(rest, "#")

	switch provider {
	case "env":
		val, found := os.LookupEnv(path)
		if !found {
			return "", &SecretError{Ref: value, Reason: fmt.Sprintf("environment variable %q is not set", path)}
		}
		return val, nil
	case "file":
		return resolveFileSecret(value, path, field)
	case "gcp":
		return "", &SecretError{Ref: value, Reason: "gcp secret provider is not supported in this build"}
	default:
		return "", &SecretError{Ref: value, Reason: fmt.Sprintf("unknown secret provider %q", provider)}
	}
}

// resolveFileSecret reads PATH, returning either the trimmed file contents or
// the named FIELD from a dotenv-formatted file with surrounding quotes
// stripped.
func resolveFileSecret(ref, path, field string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &SecretError{Ref: ref, Reason: fmt.Sprintf("read %q: %v", path, err)}
	}
	if field == "" {
		return strings.TrimSpace(string(data)), nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) != field {
			continue
		}
		return stripQuotes(strings.TrimSpace(val)), nil
	}
	return "", &SecretError{Ref: ref, Reason: fmt.Sprintf("field %q not found in %q", field, path)}
}

// stripQuotes removes one matched pair of single or double quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
