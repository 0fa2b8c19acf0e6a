// Package normalize provides field normalization functions for entity matching
package normalize

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("ntaxid", TaxID)
	Register("nname", Name)
	Register("ntext", Text)
	Register("nemail", Email)
	Register("nphone", Phone)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
	Register("base_filename", BaseFilename)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// TaxID normalizes a tax identifier for comparison
// - Remove whitespace and hyphens
// - Uppercase
// Both sides of every tax id comparison must go through this.
func TaxID(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		result.WriteRune(unicode.ToUpper(r))
	}
	return result.String()
}

// Name normalizes a legal or commercial name for fuzzy matching
// - Trim, collapse whitespace runs to a single space
// - Remove punctuation and other non-alphanumeric characters
// - Uppercase
func Name(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(unicode.ToUpper(r))
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(result.String())
}

// Text normalizes extracted document text for content comparison
// - Lowercase
// - Non-word characters collapse to a single space so punctuation keeps
//   tokens apart ("2024-001" reads as two tokens, not "2024001")
// - Ordinal indicators (º, ª) read as separators, not letters
func Text(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(s) {
		if isTextRune(r) {
			result.WriteRune(unicode.ToLower(r))
			prevSpace = false
		} else if !prevSpace {
			result.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(result.String())
}

func isTextRune(r rune) bool {
	if r == 'º' || r == 'ª' {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Email normalizes an email address (lowercase, trim)
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone removes all non-digit characters from a phone number
func Phone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// BaseFilename strips the extension and lowercases a filename for comparison
func BaseFilename(s string) string {
	base := filepath.Base(s)
	ext := filepath.Ext(base)
	return strings.ToLower(strings.TrimSuffix(base, ext))
}
