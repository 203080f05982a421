package performs

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NamingPolicy splits a declared method name into the name jobs and
// generated operations are keyed by and the suffix generated names keep.
type NamingPolicy func(name string) (normalized, suffix string)

// SuffixNaming strips one trailing "!" or "?". Names without one are
// returned unchanged with an empty suffix.
func SuffixNaming(name string) (string, string) {
	if n := len(name); n > 0 && (name[n-1] == '!' || name[n-1] == '?') {
		return name[:n-1], name[n-1:]
	}
	return name, ""
}

// IdentityNaming keeps names as declared.
func IdentityNaming(name string) (string, string) { return name, "" }

// baseJobName is the job name of a model's base job type.
func baseJobName(model string) string { return model + ".Job" }

// methodJobName derives "<Model>.<Camelized>Job" from a normalized
// method name: "publish_now" becomes "Article.PublishNowJob".
func methodJobName(model, normalized string) string {
	// Casers keep state between calls and are not safe to share.
	caser := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	b.WriteString(model)
	b.WriteByte('.')
	for _, part := range strings.FieldsFunc(normalized, isSeparator) {
		b.WriteString(caser.String(part))
	}
	b.WriteString("Job")
	return b.String()
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

func laterName(normalized, suffix string) string { return normalized + "_later" + suffix }

func bulkName(normalized, suffix string) string { return normalized + "_later_bulk" + suffix }
