package filters

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"chanmirror/internal/fourchan"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// fold lowercases text with full Unicode case folding. Casers are stateful,
// so each call gets its own.
func fold(text string) string {
	return cases.Fold().String(text)
}

// Apply returns the threads not hidden by any enabled filter.
func Apply(threads []fourchan.CatalogThread, filterList []Filter) []fourchan.CatalogThread {
	if len(filterList) == 0 {
		return threads
	}
	kept := make([]fourchan.CatalogThread, 0, len(threads))
	for _, thread := range threads {
		if !hidden(thread, filterList) {
			kept = append(kept, thread)
		}
	}
	return kept
}

func hidden(thread fourchan.CatalogThread, filterList []Filter) bool {
	for _, filter := range filterList {
		if !filter.Enabled || filter.Keyword == "" {
			continue
		}
		if matches(filter, thread) {
			return true
		}
	}
	return false
}

func matches(filter Filter, thread fourchan.CatalogThread) bool {
	var text string
	switch filter.Scope {
	case ScopeComment:
		text = stripTags(thread.Comment)
	case ScopeBoth:
		text = thread.Subject + " " + stripTags(thread.Comment)
	default:
		text = thread.Subject
	}

	if filter.Regex {
		pattern := filter.Keyword
		if !filter.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			// A broken pattern hides nothing.
			return false
		}
		return re.MatchString(text)
	}

	if filter.CaseSensitive {
		return strings.Contains(text, filter.Keyword)
	}
	return strings.Contains(fold(text), fold(filter.Keyword))
}

// stripTags removes HTML markup so keywords match the visible comment text.
func stripTags(comment string) string {
	if !strings.Contains(comment, "<") {
		return comment
	}
	return htmlTagPattern.ReplaceAllString(comment, "")
}
