// Package classify decides which external engine handles a conversion.
//
// Routing is membership based: a pair goes to the document engine when
// either side is a known document format, otherwise to the media engine when
// either side is a known media format. The document check always runs first,
// so jpg to pdf is handled by the document engine. Pairs that neither engine
// can really convert are still attempted and fail inside the tool.
package classify

import (
	"sort"
	"strings"
)

// Engine identifies the external tool responsible for a conversion
type Engine int

const (
	EngineUnsupported Engine = iota
	EngineDocument
	EngineMedia
)

func (e Engine) String() string {
	switch e {
	case EngineDocument:
		return "document"
	case EngineMedia:
		return "media"
	default:
		return "unsupported"
	}
}

var documentFormats = newSet(
	"doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "pdf", "csv", "txt", "html", "rtf",
)

var mediaFormats = newSet(
	"mp3", "mp4", "webm", "wav", "flac", "avi", "mov", "mkv", "gif", "jpg", "png", "mpeg",
	"3gp", "aac", "wma", "aiff", "ogg", "webp", "tiff", "ico", "bmp", "psd", "raw", "heic",
)

func newSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// Normalize lowercases an extension and strips surrounding space and a leading dot
func Normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// IsDocument reports whether ext is a document format
func IsDocument(ext string) bool {
	_, ok := documentFormats[Normalize(ext)]
	return ok
}

// IsMedia reports whether ext is a media format
func IsMedia(ext string) bool {
	_, ok := mediaFormats[Normalize(ext)]
	return ok
}

// Classify returns the engine for converting sourceExt to target
func Classify(sourceExt, target string) Engine {
	switch {
	case IsDocument(sourceExt) || IsDocument(target):
		return EngineDocument
	case IsMedia(sourceExt) || IsMedia(target):
		return EngineMedia
	default:
		return EngineUnsupported
	}
}

// DocumentFormats returns the sorted document extensions
func DocumentFormats() []string {
	return sortedKeys(documentFormats)
}

// MediaFormats returns the sorted media extensions
func MediaFormats() []string {
	return sortedKeys(mediaFormats)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
