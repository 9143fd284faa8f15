package scoring

import "regexp"

// Refusal markers match explicit declines and abstentions at the head of a
// response. Anchored to the start so a model that answers and then hedges
// is still scored on its answer.
var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(sorry|i'?m sorry|i apologize)`),
	regexp.MustCompile(`(?i)^\s*(i can'?t|i cannot|i am unable|i'?m unable|i won'?t)`),
	regexp.MustCompile(`(?i)^\s*(i do not|i don'?t) (know|have)`),
	regexp.MustCompile(`(?i)^\s*as an ai`),
	regexp.MustCompile(`^\s*(抱歉|对不起|對不起|很抱歉)`),
	regexp.MustCompile(`^\s*我(无法|不能|沒辦法|没办法|不知道)`),
	regexp.MustCompile(`^\s*(عذرا|آسف|لا أستطيع|لا يمكنني)`),
}

// IsRefusal reports whether a raw response is an explicit decline rather
// than an attempted answer.
func IsRefusal(raw string) bool {
	for _, re := range refusalPatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
