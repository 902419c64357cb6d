package jd

import (
	"regexp"
	"strconv"
	"strings"
)

// sectionPaths is the fixed refinement-key to section-path lookup table.
// One key may fan out to several paths. Keys not present here are treated
// as literal paths; if they resolve to nothing that is an accepted
// degenerate case, not an error.
var sectionPaths = map[string][]string{
	"role":             {"roles[0].title"},
	"outcomes":         {"roles[0].core_outcomes"},
	"responsibilities": {"roles[0].responsibilities"},
	"skills-tools":     {"roles[0].skills", "roles[0].tools"},
	"skills":           {"roles[0].skills"},
	"tools":            {"roles[0].tools"},
	"kpis":             {"roles[0].kpis"},
	"service":          {"service_recommendation.best_fit"},
	"personality":      {"roles[0].personality"},
	"sample-week":      {"roles[0].sample_week"},
	"onboarding":       {"onboarding_2w"},
	"communication":    {"roles[0].communication_norms"},
	"overlap":          {"roles[0].overlap_requirements"},
}

// SectionPathsFor resolves a refinement key to its section paths.
// Unrecognized keys map to themselves.
func SectionPathsFor(key string) []string {
	if paths, ok := sectionPaths[key]; ok {
		return paths
	}
	return []string{key}
}

// DisplayName renders a refinement key as a human-facing section title,
// e.g. "skills-tools" becomes "Skills Tools".
func DisplayName(key string) string {
	words := strings.Split(key, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var segmentPattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)(?:\[(\d+)\])?$`)

// ResolvePath traverses a dotted section path against the generic JSON form
// of a document. Segments may carry an index suffix ("roles[0]"). The
// traversal is total: any missing step returns ok=false, never a panic.
func ResolvePath(doc map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = doc

	for _, segment := range strings.Split(path, ".") {
		m := segmentPattern.FindStringSubmatch(segment)
		if m == nil {
			return nil, false
		}

		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[m[1]]
		if !ok {
			return nil, false
		}

		if m[2] != "" {
			arr, ok := current.([]interface{})
			if !ok {
				return nil, false
			}
			idx, err := strconv.Atoi(m[2])
			if err != nil || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			current = arr[idx]
		}
	}

	return current, true
}
