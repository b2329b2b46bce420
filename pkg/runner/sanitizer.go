package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxLineSize bounds one command line.
	DefaultMaxLineSize = 4096
	// EnvMaxLineSize overrides DefaultMaxLineSize.
	EnvMaxLineSize = "STEPWISE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeLine validates one command line and strips control characters
// (ANSI escapes, NUL, BEL) so they never reach logs or the terminal.
// Surrounding whitespace is trimmed.
func SanitizeLine(input string) (string, error) {
	if limit := maxLineSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(clean), nil
}

func maxLineSize() int {
	if val := os.Getenv(EnvMaxLineSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxLineSize
}
