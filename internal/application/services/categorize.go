package services

import (
	"context"
	"strings"

	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/ports"
)

// categoryKeywords maps a category name to the keywords that vote for it.
// The lists are heuristics, not an algorithm; tune freely.
var categoryKeywords = map[string][]string{
	"Work":     {"meeting", "report", "deadline", "client", "project", "email", "presentation", "review", "sprint", "invoice"},
	"Personal": {"family", "friend", "birthday", "call", "home", "plan", "visit", "clean", "organize"},
	"Shopping": {"buy", "order", "shop", "groceries", "store", "purchase", "pick up", "milk", "amazon"},
	"Health":   {"doctor", "gym", "workout", "run", "appointment", "medication", "dentist", "sleep", "yoga"},
	"Learning": {"read", "study", "course", "learn", "tutorial", "practice", "book", "lecture", "exam"},
}

// urgentKeywords push the priority guess upward
var urgentKeywords = []string{"urgent", "asap", "today", "immediately", "deadline", "important", "now", "critical"}

// KeywordCategorizer is a rule-based Categorizer: it counts keyword hits in
// the title and description and picks the densest category among the known
// ones. It never fails; an unrecognizable input yields a low-confidence
// default guess.
type KeywordCategorizer struct{}

// NewKeywordCategorizer creates the default rule-based categorizer
func NewKeywordCategorizer() *KeywordCategorizer {
	return &KeywordCategorizer{}
}

// Categorize implements ports.Categorizer
func (k *KeywordCategorizer) Categorize(_ context.Context, title, description string, knownCategories []string) (ports.CategorySuggestion, error) {
	known := make(map[string]bool, len(knownCategories))
	for _, name := range knownCategories {
		known[strings.ToLower(name)] = true
	}

	// Title hits count double; it is the stronger signal.
	text := strings.ToLower(title + " " + title + " " + description)

	bestCategory := ""
	bestScore := 0
	for category, keywords := range categoryKeywords {
		if len(known) > 0 && !known[strings.ToLower(category)] {
			continue
		}

		score := 0
		for _, keyword := range keywords {
			score += strings.Count(text, keyword)
		}
		if score > bestScore {
			bestScore = score
			bestCategory = category
		}
	}

	priority := entities.PriorityLow
	urgency := 0
	for _, keyword := range urgentKeywords {
		urgency += strings.Count(text, keyword)
	}
	switch {
	case urgency >= 2:
		priority = entities.PriorityHigh
	case urgency == 1:
		priority = entities.PriorityMedium
	}

	if bestScore == 0 {
		return ports.CategorySuggestion{Priority: priority, Confidence: 10}, nil
	}

	confidence := 40 + bestScore*15
	if confidence > 100 {
		confidence = 100
	}

	return ports.CategorySuggestion{
		Category:   bestCategory,
		Priority:   priority,
		Confidence: confidence,
	}, nil
}
