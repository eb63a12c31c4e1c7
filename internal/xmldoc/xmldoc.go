// Package xmldoc extracts named fields and repeated record groups from the
// semi-structured XML documents returned by the legacy billing backend.
//
// The backend's responses are not schema-valid XML, so extraction works over
// the raw text: tags may carry attributes, namespaces vary between
// operations, and error signals are embedded as ordinary fields. All
// functions are pure over the input string.
package xmldoc

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	patternMu sync.Mutex
	patterns  = map[string]*regexp.Regexp{}
)

// tagPattern returns a compiled pattern for a tag, matching an opening tag
// with optional attributes through its closing tag. Patterns are cached
// since the same field names recur on every lookup.
func tagPattern(name string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(name) + `(?:\s[^>]*)?>(.*?)</` + regexp.QuoteMeta(name) + `>`)
	patterns[name] = re
	return re
}

// Tag returns the inner text of the first element with the given name, and
// whether it was found. Attributes on the opening tag are tolerated.
func Tag(doc, name string) (string, bool) {
	m := tagPattern(name).FindStringSubmatch(doc)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Records returns the raw inner substrings of every record element found
// inside the first container element, in document order. A missing container
// or an empty one yields nil.
func Records(doc, container, record string) []string {
	inner, ok := Tag(doc, container)
	if !ok {
		return nil
	}
	matches := tagPattern(record).FindAllStringSubmatch(inner, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// faultTags are the wrapper elements the backend uses to signal a
// protocol-level failure.
var faultTags = []string{"fault", "Fault", "error", "Error"}

// Fault detects a protocol-level fault wrapper and returns its inner text.
func Fault(doc string) (string, bool) {
	for _, tag := range faultTags {
		if inner, ok := Tag(doc, tag); ok {
			return inner, true
		}
	}
	return "", false
}

// BusinessError reads the numeric error-code field. A non-zero code signals
// a business-level failure; the accompanying message field carries the
// human-readable reason. Returns ok=false when no code field is present.
func BusinessError(doc string) (code int, msg string, ok bool) {
	raw, found := Tag(doc, "codigoError")
	if !found {
		return 0, "", false
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, "", false
	}
	if code != 0 {
		msg, _ = Tag(doc, "mensajeError")
	}
	return code, msg, true
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// Unescape resolves the entity escapes the backend emits inside field
// values. Callers that compare extracted values semantically must unescape
// them first.
func Unescape(s string) string {
	return entityReplacer.Replace(s)
}
