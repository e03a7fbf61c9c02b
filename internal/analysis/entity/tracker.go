// Package entity scans narrative prose for newly mentioned locations,
// characters and items. It is a coarse phrase-trigger heuristic used for
// flavor display and achievement gating; false positives are acceptable.
package entity

import (
	"strings"
	"unicode"

	"github.com/seralis/fableforge/internal/model/game"
)

// npcIndicators precede a capitalized name ("you meet Brynn").
var npcIndicators = []string{
	"named", "called", "meet", "meets", "met", "greets", "introduces",
}

// itemPhrases precede an item name; up to 3 tokens are captured.
var itemPhrases = []string{
	"you pick up", "you take", "you acquire", "you receive",
	"you now have", "you are given", "you grab",
}

// locationPhrases precede a place name; up to 4 tokens are captured.
var locationPhrases = []string{
	"you arrive at", "you enter", "you reach", "you step into",
	"you find yourself in", "you emerge into",
}

// Discoveries lists names found in one narrative pass that were not already
// tracked.
type Discoveries struct {
	Locations []string
	NPCs      []string
	Items     []string
}

// Empty reports whether the pass found nothing new.
func (d Discoveries) Empty() bool {
	return len(d.Locations) == 0 && len(d.NPCs) == 0 && len(d.Items) == 0
}

// Scan runs all trigger lists over the narrative and returns names absent
// from the known sets. Running Scan twice over the same narrative yields no
// duplicates: dedup is by exact string equality on the captured text.
func Scan(text string, known game.TrackedEntities) Discoveries {
	var found Discoveries
	found.NPCs = scanNPCs(text, known.NPCs)
	found.Items = scanPhrases(text, itemPhrases, 3, known.Items)
	found.Locations = scanPhrases(text, locationPhrases, 4, known.Locations)
	return found
}

func scanNPCs(text string, known []string) []string {
	tokens := strings.Fields(text)
	var found []string
	for i, token := range tokens {
		if i+1 >= len(tokens) {
			break
		}
		if !isIndicator(strings.ToLower(trimPunct(token))) {
			continue
		}
		name := trimPunct(tokens[i+1])
		if name == "" || !startsUpper(name) {
			continue
		}
		if contains(known, name) || contains(found, name) {
			continue
		}
		found = append(found, name)
	}
	return found
}

// scanPhrases matches each trigger phrase as a token sequence. Matching is
// on lowercased, punctuation-trimmed tokens while the captured name keeps
// the original casing; token indices are shared between both views, so no
// byte-offset mapping between cased variants is ever needed.
func scanPhrases(text string, phrases []string, maxTokens int, known []string) []string {
	tokens := strings.Fields(text)
	lowered := make([]string, len(tokens))
	for i, token := range tokens {
		lowered[i] = strings.ToLower(trimPunct(token))
	}

	var found []string
	for _, phrase := range phrases {
		words := strings.Fields(phrase)
		for i := 0; i+len(words) <= len(tokens); i++ {
			if !matchesAt(lowered, i, words) {
				continue
			}
			name := captureTokens(tokens[i+len(words):], maxTokens)
			if name == "" || contains(known, name) || contains(found, name) {
				continue
			}
			found = append(found, name)
		}
	}
	return found
}

func matchesAt(lowered []string, start int, words []string) bool {
	for j, word := range words {
		if lowered[start+j] != word {
			return false
		}
	}
	return true
}

// captureTokens takes up to max tokens, stopping early at sentence-ending
// punctuation.
func captureTokens(tokens []string, max int) string {
	if len(tokens) > max {
		tokens = tokens[:max]
	}
	var captured []string
	for _, token := range tokens {
		ended := strings.ContainsAny(token, ".!?,;:")
		token = trimPunct(token)
		if token != "" {
			captured = append(captured, token)
		}
		if ended {
			break
		}
	}
	return strings.Join(captured, " ")
}

func isIndicator(word string) bool {
	for _, indicator := range npcIndicators {
		if word == indicator {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
