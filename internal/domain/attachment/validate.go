package attachment

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// PrefixSize is how many leading bytes of the stream the validator
// needs for signature detection. It matches the mimetype library's
// default read limit.
const PrefixSize = 3072

// blockedExtensions are rejected regardless of declared MIME.
var blockedExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".pif": {},
	".scr": {}, ".vbs": {}, ".vbe": {}, ".js": {}, ".jse": {},
	".jar": {}, ".msi": {}, ".ws": {}, ".wsf": {}, ".ps1": {},
	".sh": {},
}

// categoryLimits are the per-category size ceilings in bytes.
var categoryLimits = map[Category]int64{
	CategoryImage:    5 << 20,
	CategoryDocument: 10 << 20,
	CategoryText:     10 << 20,
	CategoryVideo:    50 << 20,
	CategoryAudio:    20 << 20,
	CategoryArchive:  25 << 20,
}

// mimeRule maps a declared MIME type to its category and the detected
// types accepted for it. Detection is canonical (audio/mpeg, not
// audio/mp3), so declared types that are informal synonyms carry the
// canonical spelling here.
type mimeRule struct {
	category Category
	detected []string
	ext      string
}

var allowedMimes = map[string]mimeRule{
	"image/jpeg": {CategoryImage, []string{"image/jpeg"}, ".jpg"},
	"image/png":  {CategoryImage, []string{"image/png"}, ".png"},
	"image/gif":  {CategoryImage, []string{"image/gif"}, ".gif"},
	"image/webp": {CategoryImage, []string{"image/webp"}, ".webp"},

	"application/pdf": {CategoryDocument, []string{"application/pdf"}, ".pdf"},
	"text/plain":      {CategoryText, []string{"text/plain"}, ".txt"},
	"text/csv":        {CategoryText, []string{"text/csv", "text/plain"}, ".csv"},

	"video/mp4": {CategoryVideo, []string{"video/mp4"}, ".mp4"},
	"video/avi": {CategoryVideo, []string{"video/x-msvideo"}, ".avi"},
	"video/mov": {CategoryVideo, []string{"video/quicktime"}, ".mov"},

	"audio/mp3": {CategoryAudio, []string{"audio/mpeg"}, ".mp3"},
	"audio/wav": {CategoryAudio, []string{"audio/wav"}, ".wav"},
	"audio/ogg": {CategoryAudio, []string{"audio/ogg", "application/ogg"}, ".ogg"},

	"application/zip":              {CategoryArchive, []string{"application/zip"}, ".zip"},
	"application/x-rar-compressed": {CategoryArchive, []string{"application/x-rar-compressed"}, ".rar"},
}

// FileClass is the result of a successful validation.
type FileClass struct {
	Category     Category
	DetectedMime string
	Extension    string
}

// Validator accepts or rejects uploads before any bytes are durably
// written. Checks run cheapest first and short-circuit.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the ingest checks in order: extension blocklist,
// declared-MIME allowlist, category size limit, magic-byte signature.
func (v *Validator) Validate(declaredMime, filename string, sizeBytes int64, prefix []byte) (*FileClass, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, blocked := blockedExtensions[ext]; blocked {
		return nil, &ValidationError{
			Reason: ReasonBlockedExtension,
			Detail: fmt.Sprintf("extension %s is not allowed", ext),
		}
	}

	declared := normalizeMime(declaredMime)
	rule, ok := allowedMimes[declared]
	if !ok {
		return nil, &ValidationError{
			Reason: ReasonDisallowedMime,
			Detail: fmt.Sprintf("mime type %s is not allowed", declared),
		}
	}

	if limit := categoryLimits[rule.category]; sizeBytes > limit {
		return nil, &ValidationError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("%d bytes exceeds %s limit of %d", sizeBytes, rule.category, limit),
		}
	}

	detected := mimetype.Detect(prefix)
	match := ""
	for _, candidate := range rule.detected {
		if detected.Is(candidate) {
			match = candidate
			break
		}
	}
	if match == "" {
		return nil, &ValidationError{
			Reason: ReasonSignatureMismatch,
			Detail: fmt.Sprintf("declared %s but content looks like %s", declared, normalizeMime(detected.String())),
		}
	}

	extension := detected.Extension()
	if extension == "" {
		extension = rule.ext
	}

	return &FileClass{
		Category:     rule.category,
		DetectedMime: match,
		Extension:    extension,
	}, nil
}

// Limit returns the size ceiling for a category. Unknown categories
// fall back to the document limit.
func Limit(category Category) int64 {
	if limit, ok := categoryLimits[category]; ok {
		return limit
	}
	return categoryLimits[CategoryDocument]
}

// MaxLimit returns the largest category ceiling; the storage driver
// uses it as the hard upper bound on any single object.
func MaxLimit() int64 {
	max := int64(0)
	for _, limit := range categoryLimits {
		if limit > max {
			max = limit
		}
	}
	return max
}

func normalizeMime(value string) string {
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = value[:idx]
	}
	return strings.ToLower(strings.TrimSpace(value))
}
