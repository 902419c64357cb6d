package refinement

import (
	"fmt"
	"regexp"
	"strings"
)

// intentRule is one entry in the ordered classification table: a predicate
// deciding whether the rule applies, a best-effort phrase extractor, and a
// template producing the action sentence. Extraction never fails a request;
// when no pattern matches, the rule's fallback literal is used.
type intentRule struct {
	name      string
	matches   func(feedback string) bool
	extractor *regexp.Regexp
	fallback  string
	render    func(phrase string) string
}

func containsAny(s string, terms ...string) bool {
	lower := strings.ToLower(s)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Rules are evaluated in priority order: removal beats demotion beats
// emphasis beats addition; anything else gets the generic instruction.
var intentRules = []intentRule{
	{
		name: "removal",
		matches: func(s string) bool {
			return containsAny(s, "remove", "delete")
		},
		extractor: regexp.MustCompile(`(?i)\b(?:remove|delete)\b\s+(?:the\s+)?(.+?)(?:\s+from\b.*)?$`),
		fallback:  "specified content",
		render: func(phrase string) string {
			return fmt.Sprintf("Remove %q from every related section where it appears: responsibilities, skills, tools, and the sample week. Do not leave dangling references to it anywhere in the document.", phrase)
		},
	},
	{
		name: "demotion",
		matches: func(s string) bool {
			return containsAny(s, "good to have", "nice to have", "optional")
		},
		extractor: regexp.MustCompile(`(?i)\b(?:mark|make|move|set)\s+(?:the\s+)?(.+?)\s+(?:as\s+|to\s+)?(?:a\s+)?(?:good to have|nice to have|optional)`),
		fallback:  "mentioned skills",
		render: func(phrase string) string {
			return fmt.Sprintf(`Keep %s in the section but reword it to mark it as optional, for example "%s (nice to have)".`, phrase, phrase)
		},
	},
	{
		name: "emphasis",
		matches: func(s string) bool {
			return containsAny(s, "focus more", "emphasize", "emphasise")
		},
		extractor: regexp.MustCompile(`(?i)\b(?:focus more on|focus more|emphasi[sz]e)\s+(?:the\s+)?(.+?)$`),
		fallback:  "specified area",
		render: func(phrase string) string {
			return fmt.Sprintf("Give %s more prominence and detail in this section.", phrase)
		},
	},
	{
		name: "addition",
		matches: func(s string) bool {
			return containsAny(s, "add", "include")
		},
		render: func(string) string {
			return "Append relevant new content to this section as described in the feedback."
		},
	},
}

// deriveAction classifies free-text feedback into an instruction for the
// completion service. Classification is lightweight keyword matching, not
// understanding; the fallback carries the raw feedback verbatim.
func deriveAction(feedback string) string {
	for _, rule := range intentRules {
		if !rule.matches(feedback) {
			continue
		}
		phrase := rule.fallback
		if rule.extractor != nil {
			if m := rule.extractor.FindStringSubmatch(feedback); m != nil {
				if extracted := cleanPhrase(m[1]); extracted != "" {
					phrase = extracted
				}
			}
		}
		return rule.render(phrase)
	}
	return fmt.Sprintf("Modify this section according to the feedback: %q.", feedback)
}

func cleanPhrase(phrase string) string {
	return strings.Trim(strings.TrimSpace(phrase), `.,;:"'`)
}
