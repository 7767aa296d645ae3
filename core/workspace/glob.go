package workspace

import (
	"regexp"
	"strings"
)

// GlobOptions mirrors the matching options used when collecting graded files from a workspace.
type GlobOptions struct {
	CaseSensitiveMatch bool
	Extglob            bool // enables !(..), *(..), +(..), ?(..), @(..)
	BraceExpansion     bool // enables {a,b} and {1..3}
}

// DefaultGlobOptions is the configuration workspaces match graded files with.
var DefaultGlobOptions = GlobOptions{CaseSensitiveMatch: true}

var (
	commonGlobSymbolsRegex  = regexp.MustCompile(`[*?]|^!`)
	charClassSymbolsRegex   = regexp.MustCompile(`\[[^\[]*\]`)
	groupSymbolsRegex       = regexp.MustCompile(`(?:^|[^!*+?@])\([^(]*\|[^|]*\)`)
	globExtensionRegex      = regexp.MustCompile(`[!*+?@]\([^(]*\)`)
	braceExpansionSepsRegex = regexp.MustCompile(`,|\.\.`)
)

// IsDynamicPattern reports whether pattern can match more than the single literal path it spells.
func IsDynamicPattern(pattern string, opts GlobOptions) bool {
	if pattern == "" {
		return false
	}
	if !opts.CaseSensitiveMatch || strings.Contains(pattern, `\`) {
		return true
	}
	if commonGlobSymbolsRegex.MatchString(pattern) ||
		charClassSymbolsRegex.MatchString(pattern) ||
		groupSymbolsRegex.MatchString(pattern) {
		return true
	}
	if opts.Extglob && globExtensionRegex.MatchString(pattern) {
		return true
	}
	if opts.BraceExpansion && hasBraceExpansion(pattern) {
		return true
	}
	return false
}

func hasBraceExpansion(pattern string) bool {
	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return false
	}
	closing := strings.IndexByte(pattern[open+1:], '}')
	if closing == -1 {
		return false
	}
	return braceExpansionSepsRegex.MatchString(pattern[open : open+1+closing])
}

// StaticPatterns returns the patterns that name a single file, in order.
func StaticPatterns(patterns []string, opts GlobOptions) []string {
	static := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !IsDynamicPattern(p, opts) {
			static = append(static, p)
		}
	}
	return static
}
