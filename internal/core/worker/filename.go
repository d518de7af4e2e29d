package worker

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"ytkit/internal/core"
)

var templateTokenRE = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// illegalFilenameChars mirrors common OS-reserved filename characters;
// anything matching is replaced with a dash per spec.md §4.3's
// filename-template sanitization rule.
var illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// ResolveFilename expands tmpl's `{path.dotted}` tokens against
// videoInfo then videoFormat, sanitizes each resolved segment, and
// appends the given extension.
func ResolveFilename(tmpl string, info *core.VideoInfo, format core.VideoFormat, ext string) string {
	resolved := templateTokenRE.ReplaceAllStringFunc(tmpl, func(token string) string {
		path := token[1 : len(token)-1]
		value, ok := lookupPath(info, path)
		if !ok {
			value, ok = lookupPath(&format, path)
		}
		if !ok {
			return token
		}
		return sanitizeSegment(value)
	})
	return fmt.Sprintf("%s.%s", strings.TrimSuffix(resolved, "."+ext), ext)
}

func sanitizeSegment(s string) string {
	return illegalFilenameChars.ReplaceAllString(s, "-")
}

// lookupPath walks a dotted path against root's exported fields,
// matching each segment case-insensitively (templates use
// lower-camel JSON-style names; Go fields are upper-camel).
func lookupPath(root any, path string) (string, bool) {
	v := reflect.ValueOf(root)
	for _, part := range strings.Split(path, ".") {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return "", false
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return "", false
		}
		field := findFieldFold(v, part)
		if !field.IsValid() {
			return "", false
		}
		v = field
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	return fmt.Sprintf("%v", v.Interface()), true
}

func findFieldFold(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, name) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}
