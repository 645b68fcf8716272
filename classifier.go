package agentroute

import (
	"regexp"
	"strings"
)

// intentRuleGroup binds one intent to its ordered list of text patterns.
// Groups are evaluated in declaration order and patterns in list order, so
// priority is enforced by construction rather than by map iteration order.
type intentRuleGroup struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// Greeting patterns come first so that short courtesy messages never fall
// through to the knowledge-question patterns ("hello, how does this work?"
// classifies as a greeting, not a knowledge search).
var intentRules = []intentRuleGroup{
	{
		intent: IntentSimpleGreeting,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(hi|hello|hey|greetings|good\s+(morning|afternoon|evening))`),
			regexp.MustCompile(`^(thank you|thanks|thx)`),
			regexp.MustCompile(`^(bye|goodbye|see you)`),
		},
	},
	{
		intent: IntentKnowledgeSearch,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(what is|what are|explain|describe|tell me about)`),
			regexp.MustCompile(`(how does|how to|how can)`),
			regexp.MustCompile(`(why is|why does|why do)`),
			regexp.MustCompile(`(define|definition of)`),
			regexp.MustCompile(`(benefits of|advantages of|disadvantages of)`),
			regexp.MustCompile(`(compare|difference between|vs)`),
		},
	},
	{
		intent: IntentSummarization,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(summarize|summary|recap|overview)`),
			regexp.MustCompile(`(in short|briefly|tldr)`),
		},
	},
	{
		intent: IntentCalculation,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(calculate|compute|solve)`),
			regexp.MustCompile(`(\d+[+\-*/]\d+)`),
		},
	},
}

// IntentClassifier maps request text to a single intent label using ordered
// pattern rules. It is stateless and safe for concurrent use.
type IntentClassifier struct {
	rules []intentRuleGroup
}

// NewIntentClassifier creates a classifier with the default routing rules.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{rules: intentRules}
}

// Classify returns the intent for the given text. The first intent whose
// first matching pattern fires wins; ties are broken by rule-group order and
// then by pattern order within a group.
//
// When no pattern matches, text containing a question mark or more than two
// whitespace-delimited tokens defaults to a knowledge search; anything else
// is unknown. The empty string is therefore unknown.
func (c *IntentClassifier) Classify(text string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, group := range c.rules {
		for _, pattern := range group.patterns {
			if pattern.MatchString(normalized) {
				return group.intent
			}
		}
	}

	if strings.Contains(normalized, "?") || len(strings.Fields(normalized)) > 2 {
		return IntentKnowledgeSearch
	}

	return IntentUnknown
}
