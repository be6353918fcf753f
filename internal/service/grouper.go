package service

import "quiz-export/internal/domain"

// GroupByLanguage partitions items by canonical language. Groups are ordered
// by the first appearance of their language and items keep their input order.
func GroupByLanguage(items []domain.QuizItem) []domain.LanguageGroup {
	index := make(map[string]int)
	var groups []domain.LanguageGroup
	for _, item := range items {
		lang := CanonicalLanguage(item.Language)
		item.Language = lang
		i, ok := index[lang]
		if !ok {
			i = len(groups)
			index[lang] = i
			groups = append(groups, domain.LanguageGroup{Language: lang})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
