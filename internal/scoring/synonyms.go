// Package scoring holds the deterministic response-scoring machinery: the
// frozen per-language synonym tables, refusal markers, and the declared
// output-schema parser. Matching is exact set membership over normalized
// strings — never fuzzy similarity — so every verdict is auditable.
package scoring

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"feastbench/domain/corpus"
)

// Normalize canonicalizes a label for set-membership matching: NFKC fold,
// lower case, trimmed. The same normalization is applied to table entries
// and to model output, so membership is symmetric.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// synonymTables is the frozen canonical synonym table, keyed by the holiday
// definition's label key and the item language. Entries were fixed at
// pre-registration; adding one mid-run would silently change scoring.
var synonymTables = map[string]map[corpus.Language][]string{
	"lunar_new_year": {
		corpus.LanguageEnglish: {
			"lunar new year", "chinese new year", "spring festival",
		},
		corpus.LanguageChinese: {
			"春节", "春節", "农历新年", "農曆新年", "新春", "过年", "過年",
		},
	},
	"dragon_boat": {
		corpus.LanguageEnglish: {
			"dragon boat festival", "dragon boat", "duanwu", "duanwu festival",
		},
		corpus.LanguageChinese: {
			"端午节", "端午節", "端午",
		},
	},
	"mid_autumn": {
		corpus.LanguageEnglish: {
			"mid-autumn festival", "mid autumn festival", "moon festival", "mooncake festival",
		},
		corpus.LanguageChinese: {
			"中秋节", "中秋節", "中秋",
		},
	},
	"easter": {
		corpus.LanguageEnglish: {
			"easter", "easter sunday", "resurrection sunday", "pascha",
		},
		corpus.LanguageChinese: {
			"复活节", "復活節",
		},
	},
	"christmas": {
		corpus.LanguageEnglish: {
			"christmas", "christmas day", "xmas", "noel",
		},
		corpus.LanguageChinese: {
			"圣诞节", "圣诞", "聖誕節", "聖誕",
		},
	},
	"eid_al_fitr": {
		corpus.LanguageEnglish: {
			"eid al-fitr", "eid al fitr", "eid ul-fitr", "eid ul fitr", "eid",
		},
		corpus.LanguageArabic: {
			"عيد الفطر",
		},
	},
	"eid_al_adha": {
		corpus.LanguageEnglish: {
			"eid al-adha", "eid al adha", "eid ul-adha", "eid ul adha", "feast of sacrifice",
		},
		corpus.LanguageArabic: {
			"عيد الأضحى",
		},
	},
	"ramadan_start": {
		corpus.LanguageEnglish: {
			"ramadan", "first day of ramadan", "start of ramadan", "beginning of ramadan",
		},
		corpus.LanguageArabic: {
			"رمضان", "بداية رمضان",
		},
	},
}

// AcceptedLabels returns the frozen normalized synonym set for a label key
// in a language. English entries are always included as a floor: models
// frequently answer in English regardless of the prompt language, and the
// studies scored those as recognitions.
func AcceptedLabels(labelKey string, lang corpus.Language) []string {
	byLang, ok := synonymTables[labelKey]
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(entries []string) {
		for _, e := range entries {
			n := Normalize(e)
			if _, dup := seen[n]; !dup {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	add(byLang[lang])
	if lang != corpus.LanguageEnglish {
		add(byLang[corpus.LanguageEnglish])
	}
	return out
}
