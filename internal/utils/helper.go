package utils

import (
	"log/slog"
	"os"
	"regexp"
)

var (
	// key=VALUE, api_key=VALUE, apiKey=VALUE, api-key=VALUE, apikey=VALUE
	keyPattern = regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`)
	// Authorization: Bearer TOKEN
	bearerPattern = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	// Azure Read
	azureKeyPattern = regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`)
	// Google Cloud Vision
	googleHeaderPattern = regexp.MustCompile(`(?i)x-goog-api-key:\s*([^\s]+)`)
	googleKeyPattern    = regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)
)

// MaskSensitiveData masks API keys and other sensitive information in strings
// This is used to prevent accidental logging of sensitive data in error messages and URLs
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	s = keyPattern.ReplaceAllString(s, `${1}${2}=***MASKED***`)
	s = bearerPattern.ReplaceAllString(s, `Bearer ***MASKED***`)
	s = azureKeyPattern.ReplaceAllString(s, `Ocp-Apim-Subscription-Key: ***MASKED***`)
	s = googleHeaderPattern.ReplaceAllString(s, `x-goog-api-key: ***MASKED***`)
	s = googleKeyPattern.ReplaceAllString(s, `***MASKED***`)

	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
