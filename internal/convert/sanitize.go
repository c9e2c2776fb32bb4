package convert

import (
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackFilename is used when sanitization leaves nothing behind
const fallbackFilename = "upload"

// asciiOnly decomposes compatibility characters and drops everything that
// is not ASCII, so "résumé" becomes "resume"
var asciiOnly = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r >= utf8.RuneSelf })),
)

// SanitizeFilename reduces an uploaded filename to a flat, portable name
// that is safe to join onto a workspace directory
func SanitizeFilename(name string) string {
	ascii, _, err := transform.String(asciiOnly, name)
	if err != nil {
		ascii = ""
	}

	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	joined := strings.Join(strings.Fields(ascii), "_")

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '.' || r == '-':
			return r
		}
		return -1
	}, joined)

	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		return fallbackFilename
	}
	return cleaned
}

// baseName returns the last element of a client supplied path, which may
// use either separator
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}

// SourceExtension returns the normalized extension of a client filename
func SourceExtension(name string) string {
	ext := path.Ext(baseName(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ResponseFilename builds the download name: the original base name with
// its extension replaced by target
func ResponseFilename(original, target string) string {
	base := baseName(original)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = fallbackFilename
	}
	return base + "." + target
}
