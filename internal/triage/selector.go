package triage

import "sentrybot/internal/domain"

// toolTable declares, per content type, which analyzers to consult and in
// what order. Entries absent from the registry are skipped at selection time,
// so optional tools degrade to "not consulted" rather than failing.
var toolTable = map[domain.ContentType][]string{
	domain.ContentURL:     {"reputation", "malware_list", "url_scan", "llm_judgment", "news_correlation"},
	domain.ContentEmail:   {"reputation", "llm_judgment", "news_correlation"},
	domain.ContentPhone:   {"phone_search", "llm_judgment"},
	domain.ContentMessage: {"llm_judgment", "news_correlation"},
	domain.ContentImage:   {"media_authenticity", "llm_judgment"},
	domain.ContentVoice:   {"transcript_patterns", "llm_judgment"},
	domain.ContentVideo:   {"media_authenticity", "llm_judgment"},
}

// registryView is the read side of the analyzer registry the selector needs.
type registryView interface {
	Has(name string) bool
}

// SelectTools returns the ordered analyzer names to invoke for a content
// type, filtered down to analyzers actually present in the registry.
func SelectTools(contentType domain.ContentType, registry registryView) []string {
	declared, ok := toolTable[contentType]
	if !ok {
		declared = []string{"llm_judgment"}
	}

	selected := make([]string, 0, len(declared))
	for _, name := range declared {
		if registry.Has(name) {
			selected = append(selected, name)
		}
	}
	return selected
}
