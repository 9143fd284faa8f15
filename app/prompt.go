package app

import (
	"fmt"
	"strings"

	"feastbench/domain/corpus"
)

// promptInstructions is the fixed question frame per language. Content under
// evaluation lives in the item (the date) and the condition (strategy
// preamble); the frame itself is constant across the whole corpus.
var promptInstructions = map[corpus.Language]struct {
	question string
	schema   string
}{
	corpus.LanguageEnglish: {
		question: "Which holidays, if any, fall on %s?",
		schema:   `Answer with a JSON object of the form {"holidays": ["..."]}. Use an empty list if no holiday falls on that date.`,
	},
	corpus.LanguageChinese: {
		question: "%s 这一天有哪些节日（如果有的话）？",
		schema:   `请用 JSON 对象回答，格式为 {"holidays": ["..."]}。如果这一天没有节日，请返回空列表。`,
	},
	corpus.LanguageArabic: {
		question: "ما الأعياد، إن وُجدت، التي تقع في %s؟",
		schema:   `أجب بكائن JSON بالشكل {"holidays": ["..."]}. استخدم قائمة فارغة إذا لم يقع أي عيد في ذلك التاريخ.`,
	},
}

var categoryPreambles = map[corpus.ConditionCategory]string{
	corpus.ConditionMinimal:        "",
	corpus.ConditionChainOfThought: "Think through the calendar conversion step by step before answering.",
	corpus.ConditionWorkedExample:  "Worked example: 2011-02-03 was Lunar New Year, so the answer there would be {\"holidays\": [\"Lunar New Year\"]}.",
	corpus.ConditionResolverTool:   "You may reason as if you had consulted an authoritative calendar conversion table.",
	corpus.ConditionTableICL:       "Recall any holiday date tables you know for the relevant calendar systems before answering.",
}

// BuildPrompt renders the query text for an item under a prompt condition.
// Rendering is pure string assembly; identical inputs always produce the
// identical prompt.
func BuildPrompt(item corpus.TestItem, cond corpus.PromptCondition) string {
	frame, ok := promptInstructions[item.Language]
	if !ok {
		frame = promptInstructions[corpus.LanguageEnglish]
	}

	var b strings.Builder
	if preamble := categoryPreambles[cond.Category]; preamble != "" {
		b.WriteString(preamble)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, frame.question, item.PromptDate.String())
	b.WriteString("\n")
	b.WriteString(frame.schema)
	return b.String()
}
