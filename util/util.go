// Package util collects small conversions reused across the schema
// registry, filter translator and backend shape builder: identifier
// generation and the snake_case/title_case transforms sref paths go
// through on their way to a dref or a UI tag.
package util

import (
	"net"
	"strings"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/stoewer/go-strcase"
)

// IPv6ToIPv4 rewrites an IPv4-mapped IPv6 address ("::ffff:192.0.2.1") to
// its plain dotted-quad form, so IP allowlist/denylist comparisons don't
// silently miss a match. Non-mapped addresses are returned unchanged.
func IPv6ToIPv4(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return s
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return s
}

// NewUUID returns the canonical lowercase-hex form of a fresh v4 UUID.
func NewUUID() string {
	return uuid.NewString()
}

// SnakeCase converts a dotted sref or CamelCase identifier to snake_case,
// replacing '.' with '_' first so "mod.ClassName" becomes "mod_class_name".
func SnakeCase(s string) string {
	return strcase.SnakeCase(strings.ReplaceAll(s, ".", "_"))
}

// KebabCase converts an identifier to the path-case form used in a
// schema's HTTP route, e.g. "ClassName" -> "class-name".
func KebabCase(s string) string {
	return strcase.KebabCase(strings.ReplaceAll(s, ".", "-"))
}

// TitleCase converts a snake/kebab-case string to "Title Case" for the UI
// grouping tag.
func TitleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ReverseSegments reverses a dot-separated module path, e.g.
// "service.module.sub" -> "sub.module.service".
func ReverseSegments(path string) string {
	parts := strings.Split(path, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// StringToBytes and BytesToString avoid a copy on the hot path of cache
// value (de)serialization, mirroring the teacher's util package.
func StringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func BytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// FormatDurationSmart renders d at the coarsest unit that keeps at least
// one significant digit, used by the slow-query logger so "812µs" doesn't
// get buried in a sea of "0.000812s" entries.
func FormatDurationSmart(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}
