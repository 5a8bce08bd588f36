// Package medname provides normalization and fuzzy matching for medical
// entity names (diseases, drugs). Upstream databases disagree on casing,
// punctuation and possessives ("Parkinson's Disease" vs "Parkinson Disease"),
// so every name comparison in the engine goes through this package.
package medname

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical comparison form of a medical name:
// NFKC-normalized, lower-cased, apostrophes dropped, remaining punctuation
// collapsed to single spaces.
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = strings.TrimSpace(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '\'' || r == '’':
			// Dropped entirely so "parkinson's" and "parkinsons" collapse
			// to the same form.
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeDrug returns the canonical comparison form of a drug name.
// Drug names additionally drop salt/ester suffixes that vary between
// ChEMBL and DGIdb records for the same compound.
func NormalizeDrug(name string) string {
	s := Normalize(name)
	for _, salt := range []string{" hydrochloride", " hcl", " sodium", " sulfate", " mesylate", " tartrate", " maleate", " citrate"} {
		s = strings.TrimSuffix(s, salt)
	}
	return s
}

// DisplayDrug returns the conventional display form of a drug name
// (upper-case, as ChEMBL preferred names are written).
func DisplayDrug(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Tokens splits a normalized name into its word tokens, dropping
// single-letter connectives that carry no matching signal.
func Tokens(name string) []string {
	fields := strings.Fields(Normalize(name))
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 || unicode.IsDigit(rune(f[0])) {
			out = append(out, f)
		}
	}
	return out
}
