package sla

import (
	"regexp"
	"strings"
)

var (
	oooSubjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:out\s+of\s+(?:the\s+)?office|ooo)\b`),
		regexp.MustCompile(`\bauto(?:matic)?[-\s]?(?:reply|response)\b`),
		regexp.MustCompile(`\b(?:away|vacation|holiday|leave)\s+(?:notice|message|responder|reply)\b`),
	}

	oooBodyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:out\s+of\s+(?:the\s+)?office|ooo)\b`),
		regexp.MustCompile(`\bauto(?:matic)?[-\s]?(?:reply|response)\b`),
		regexp.MustCompile(`\blimited\s+(?:access\s+to\s+)?e-?mail\b`),
		regexp.MustCompile(`\b(?:i\s+am|i'm)\s+(?:currently\s+)?(?:on\s+(?:annual\s+|parental\s+|maternity\s+|paternity\s+)?(?:leave|vacation|holiday|pto)|away\s+from\s+the\s+office)\b`),
	}

	reReturn = regexp.MustCompile(`(?i)\b(?:until|till|through|returning(?:\s+on)?|return\s+on|back\s+(?:in\s+the\s+office\s+)?on|back)\s+([^.\n;]{3,60})`)
)

// IsOutOfOffice reports whether a reply reads as an out-of-office auto-reply
func IsOutOfOffice(subject, body string) bool {
	subject = strings.ToLower(subject)
	for _, re := range oooSubjectPatterns {
		if re.MatchString(subject) {
			return true
		}
	}
	body = strings.ToLower(body)
	for _, re := range oooBodyPatterns {
		if re.MatchString(body) {
			return true
		}
	}
	return false
}

// returnPhrase extracts the text naming the return date, e.g. "January 12"
func returnPhrase(body string) (string, bool) {
	m := reReturn.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
