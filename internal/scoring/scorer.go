package scoring

import (
	"feastbench/domain/corpus"
	"feastbench/domain/record"
)

// Verdict is the classification of one raw response against one test item.
type Verdict struct {
	Class   record.OutcomeClass
	Method  record.ParseMethod
	Matched []string
}

// Classify scores one raw response. The pipeline is fixed: refusal markers
// first, then the declared schema, then the keyword fallback, and only
// responses no stage can read are Malformed. Classification never mutates
// anything, so re-scoring a log yields identical verdicts.
func Classify(item corpus.TestItem, raw string, truncated bool) Verdict {
	if truncated || len(raw) == 0 {
		return Verdict{Class: record.OutcomeMalformed, Method: record.ParseNone}
	}
	if IsRefusal(raw) {
		return Verdict{Class: record.OutcomeRefusal, Method: record.ParseNone}
	}

	labels, err := ParseHolidays(raw)
	method := record.ParseJSON
	if err != nil {
		labels = KeywordScan(raw, item.AcceptedLabels)
		if labels == nil {
			return Verdict{Class: record.OutcomeMalformed, Method: record.ParseNone}
		}
		method = record.ParseKeyword
	}

	return Verdict{
		Class:   evaluate(item, labels),
		Method:  method,
		Matched: intersect(labels, item.AcceptedLabels),
	}
}

// evaluate applies the membership rules. A positive item needs at least one
// accepted label. A negative item needs an empty list — except that a label
// landing inside a declared tolerance band still counts as correct, since
// the ground truth itself is only pinned to that band.
func evaluate(item corpus.TestItem, labels []string) record.OutcomeClass {
	hits := intersect(labels, item.AcceptedLabels)

	if !item.Type.IsNegative() {
		if len(hits) > 0 {
			return record.OutcomeCorrect
		}
		return record.OutcomeIncorrect
	}

	if len(labels) == 0 {
		return record.OutcomeCorrect
	}
	if len(hits) > 0 && item.ToleranceDays > 0 && withinTolerance(item) {
		return record.OutcomeCorrect
	}
	return record.OutcomeIncorrect
}

func withinTolerance(item corpus.TestItem) bool {
	d := item.GroundTruth.Date.DaysBetween(item.PromptDate)
	if d < 0 {
		d = -d
	}
	return d <= item.ToleranceDays
}

func intersect(labels, accepted []string) []string {
	set := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		set[a] = struct{}{}
	}
	var hits []string
	seen := make(map[string]struct{})
	for _, l := range labels {
		if _, ok := set[l]; ok {
			if _, dup := seen[l]; !dup {
				seen[l] = struct{}{}
				hits = append(hits, l)
			}
		}
	}
	return hits
}
