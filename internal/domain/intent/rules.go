package intent

import (
	"strings"
	"unicode"

	"brainstorm-api/internal/domain/conversation"
)

// ReviewCommand is the literal command that always triggers the review workflow.
const ReviewCommand = "review conversation"

// MaxAffirmativeWords bounds how long an affirmative reply may be.
const MaxAffirmativeWords = 6

var affirmativePhrases = [][]string{
	{"yes"}, {"yeah"}, {"yep"}, {"yup"},
	{"love", "it"}, {"perfect"}, {"exactly"}, {"definitely"}, {"absolutely"},
	{"sounds", "good"}, {"agreed"}, {"let's", "do", "it"}, {"lets", "do", "it"},
	{"go", "with", "that"}, {"that's", "it"}, {"i", "like", "it"}, {"great"},
}

var fillers = map[string]bool{
	"oh": true, "so": true, "really": true, "very": true, "much": true,
	"that": true, "totally": true, "ok": true, "okay": true,
}

// IsReviewCommand reports whether message is the review command, ignoring case and surrounding space.
func IsReviewCommand(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), ReviewCommand)
}

// IsAffirmative reports whether message consists only of affirmative phrases and fillers, with at
// least one affirmative phrase.
func IsAffirmative(message string) bool {
	words := tokenize(message)
	if len(words) == 0 || len(words) > MaxAffirmativeWords {
		return false
	}

	matched := false
	for i := 0; i < len(words); {
		if n := matchPhrase(words[i:]); n > 0 {
			matched = true
			i += n
			continue
		}
		if fillers[words[i]] {
			i++
			continue
		}
		return false
	}
	return matched
}

// FollowsAssistant reports whether the last message of history was written by the assistant.
func FollowsAssistant(history []conversation.Message) bool {
	last, ok := conversation.Last(history)
	return ok && last.Role == conversation.RoleAssistant
}

func matchPhrase(words []string) int {
	best := 0
	for _, phrase := range affirmativePhrases {
		if len(phrase) > len(words) || len(phrase) <= best {
			continue
		}
		ok := true
		for j, w := range phrase {
			if words[j] != w {
				ok = false
				break
			}
		}
		if ok {
			best = len(phrase)
		}
	}
	return best
}

// tokenize lowercases and splits on anything that is not a letter, digit or apostrophe.
func tokenize(message string) []string {
	lower := strings.ToLower(strings.ReplaceAll(message, "’", "'"))
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
