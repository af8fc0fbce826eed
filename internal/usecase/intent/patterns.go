package intent

import (
	"regexp"
	"strings"
)

var (
	confusionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:that's|that is|thats)\s+not\s+what\s+i\s+(?:meant|said|asked)\b`),
		regexp.MustCompile(`\bi\s+(?:think\s+)?(?:meant|mean)\s+(?:to\s+say|the\s+other)\b`),
		regexp.MustCompile(`\b(?:sorry|apologies),?\s+(?:i\s+)?(?:mis(?:read|spoke|typed)|made\s+a\s+mistake|got\s+(?:that|it)\s+wrong)\b`),
		regexp.MustCompile(`\b(?:correction|to\s+clarify|let\s+me\s+clarify|scratch\s+that|ignore\s+my\s+(?:last|previous))\b`),
		regexp.MustCompile(`\b(?:i'm|i\s+am)\s+(?:confused|not\s+sure\s+what\s+you\s+mean|lost)\b`),
		regexp.MustCompile(`\bwhat\s+(?:meeting|call)\s+(?:is\s+this|are\s+you\s+referring)\b`),
		regexp.MustCompile(`\b(?:wrong\s+person|wrong\s+email|who\s+is\s+this)\b`),
	}

	delegationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:looping|loop)\s+in\b`),
		regexp.MustCompile(`\b(?:cc'?ing|copying|adding)\s+(?:my\s+)?(?:colleague|assistant|ea|team(?:mate)?|manager|boss|cto|ceo|cfo|vp)\b`),
		regexp.MustCompile(`\b(?:my\s+)?(?:assistant|ea|colleague|manager)\s+(?:will|can|should)\s+(?:help|coordinate|schedule|set|find|reach|take)\b`),
		regexp.MustCompile(`\b(?:please|pls)\s+(?:reach\s+out\s+to|contact|coordinate\s+with|work\s+with|talk\s+to|speak\s+(?:to|with)|schedule\s+(?:this\s+)?with)\b`),
		regexp.MustCompile(`\b(?:handing|passing)\s+(?:this\s+)?(?:off|over)\s+to\b`),
		regexp.MustCompile(`\b(?:the\s+)?(?:right|better|best)\s+person\s+(?:to\s+talk\s+to\s+)?(?:is|would\s+be)\b`),
		regexp.MustCompile(`\b(?:i've|i\s+have)\s+(?:moved|left)\s+(?:on|the\s+company|roles?)\b`),
	}

	declinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bnot\s+interested\b`),
		regexp.MustCompile(`\b(?:no|not)\s+(?:thanks|thank\s+you)\b`),
		regexp.MustCompile(`\b(?:we'll|we\s+will|i'll|i\s+will)\s+pass\b`),
		regexp.MustCompile(`\b(?:remove\s+me|unsubscribe|stop\s+(?:emailing|contacting)|take\s+me\s+off)\b`),
		regexp.MustCompile(`\b(?:not\s+(?:a\s+)?(?:priority|fit|good\s+fit)|went\s+with\s+(?:another|a\s+different)|chose\s+(?:another|a\s+different))\b`),
		regexp.MustCompile(`\b(?:not\s+(?:right\s+)?now|not\s+at\s+this\s+time|no\s+bandwidth|circle\s+back|reach\s+out\s+(?:again\s+)?(?:in|next|after)|maybe\s+(?:later|next)|next\s+(?:quarter|year))\b`),
		regexp.MustCompile(`\b(?:have\s+to|need\s+to|must)\s+cancel\b`),
	}

	// wording that leaves the door open
	salvagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bnot\s+(?:right\s+)?now\b`),
		regexp.MustCompile(`\bnot\s+at\s+(?:this|the\s+moment)\b`),
		regexp.MustCompile(`\b(?:circle|check)\s+back\b`),
		regexp.MustCompile(`\breach\s+out\s+(?:again\s+)?(?:in|next|after)\b`),
		regexp.MustCompile(`\bmaybe\s+(?:later|next)\b`),
		regexp.MustCompile(`\b(?:next|after\s+the)\s+(?:quarter|year|holidays|month)\b`),
		regexp.MustCompile(`\b(?:no\s+bandwidth|too\s+busy|swamped)\b`),
	}

	// wording that closes it
	finalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bnever\b`),
		regexp.MustCompile(`\b(?:remove\s+me|unsubscribe|stop\s+(?:emailing|contacting)|take\s+me\s+off)\b`),
		regexp.MustCompile(`\b(?:went\s+with|chose)\s+(?:another|a\s+different)\b`),
		regexp.MustCompile(`\bnot\s+interested\b`),
	}

	reschedulePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bre-?schedul(?:e|ing)\b`),
		regexp.MustCompile(`\b(?:move|push|shift|bump)\s+(?:our|the|this|my)\s+(?:meeting|call|chat|demo|time)\b`),
		regexp.MustCompile(`\bsomething\s+came\s+up\b`),
		regexp.MustCompile(`\bcan\s+no\s+longer\s+make\b`),
	}

	counterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\binstead\b`),
		regexp.MustCompile(`\b(?:how|what)\s+about\b`),
		regexp.MustCompile(`\b(?:could|can)\s+we\s+(?:do|try|make\s+it|move\s+it)\b`),
		regexp.MustCompile(`\bwould\s+.{1,30}\s+work\b`),
		regexp.MustCompile(`\b(?:alternatively|i'm\s+free|i\s+am\s+free|i\s+have\s+time|i'm\s+available|i\s+am\s+available)\b`),
		regexp.MustCompile(`\b(?:doesn't|does\s+not|won't|will\s+not)\s+work\b.*\b(?:but|how|what|could|can)\b`),
	}

	acceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:works|work)\s+(?:for\s+(?:me|us)|great|well|perfectly|fine)\b`),
		regexp.MustCompile(`\b(?:that|this|it)\s+works\b`),
		regexp.MustCompile(`\b(?:sounds|looks)\s+(?:good|great|perfect)\b`),
		regexp.MustCompile(`\b(?:perfect|confirmed|see\s+you\s+then|book\s+it|count\s+me\s+in|i'm\s+in)\b`),
		regexp.MustCompile(`\blet'?s\s+(?:do|go\s+with|lock\s+in|book)\b`),
		regexp.MustCompile(`\b(?:is|are)\s+(?:great|perfect|fine|good)\b`),
	}

	reEmail    = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	reDelegate = regexp.MustCompile(`\b(?:colleague|assistant|ea|manager|teammate)[,:]?\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	reQuoted   = regexp.MustCompile(`(?m)^\s*(?:on\s.+wrote:|-{2,}\s*original message\s*-{2,}|from:\s.+)$`)
)

func normalize(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

func matchAny(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// StripQuoted drops the quoted history below a reply
func StripQuoted(body string) string {
	if loc := reQuoted.FindStringIndex(strings.ToLower(body)); loc != nil {
		body = body[:loc[0]]
	}
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// DetectConfusion reports a correction or misunderstanding in the reply
func DetectConfusion(body string) (string, bool) {
	m, ok := matchAny(confusionPatterns, normalize(body))
	if !ok {
		return "", false
	}
	return "reply contains " + quote(m), true
}

// DetectDelegation reports a hand-off to someone else and who it names
func DetectDelegation(body string) (string, bool) {
	if _, ok := matchAny(delegationPatterns, normalize(body)); !ok {
		return "", false
	}
	if m := reDelegate.FindStringSubmatch(body); m != nil {
		return m[1], true
	}
	if m := reEmail.FindString(normalize(body)); m != "" {
		return m, true
	}
	return "", true
}

// DetectQuestion returns the first question sentence in the reply
func DetectQuestion(body string) (string, bool) {
	for _, sentence := range splitSentences(body) {
		if strings.HasSuffix(sentence, "?") {
			return sentence, true
		}
	}
	return "", false
}

// IsSalvageableDecline reports whether a decline reads as "not now" rather
// than "never"
func IsSalvageableDecline(body string) bool {
	lower := normalize(body)
	if _, final := matchAny(finalPatterns, lower); final {
		return false
	}
	_, ok := matchAny(salvagePatterns, lower)
	return ok
}

func splitSentences(body string) []string {
	var out []string
	start := 0
	for i, r := range body {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(body[start : i+1]); len(s) > 1 {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(body[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func quote(s string) string {
	return `"` + s + `"`
}
