package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// GeneratedImage is one produced artifact in a user's gallery.
type GeneratedImage struct {
	// Opaque identity, derived from the generation time and the prompt head.
	ID string `json:"id"`

	// Either a data URI or an absolute http(s) URL.
	URL string `json:"url"`

	// The prompt that produced the image. Refinements keep the original prompt.
	Prompt string `json:"prompt"`

	Alt string `json:"alt"`

	// User-editable filename stem; empty means unset.
	Name string `json:"name"`

	// First two words of whichever prompt produced this revision.
	AIHint string `json:"aiHint,omitempty"`
}

const (
	PlaceholderGenerateURL = "https://placehold.co/512x512.png?text=Error+Generating"
	PlaceholderRefineURL   = "https://placehold.co/512x512.png?text=Error+Refining"
	UntitledPrompt         = "Untitled Prompt"

	idPromptChars = 10
)

// IsDataURI reports whether the image carries inline content.
func (g GeneratedImage) IsDataURI() bool {
	return strings.HasPrefix(g.URL, "data:")
}

// InvalidImageURL is the placeholder shown for a stored entry without a url.
func InvalidImageURL(id string) string {
	return "https://placehold.co/512x512.png?text=Invalid+Image&seed=" + url.QueryEscape(id)
}

// NewImageID builds an id from the current time and the first characters of text.
// Two calls within the same millisecond with the same text collide.
func NewImageID(now time.Time, text string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), idFragment(text))
}

func idFragment(text string) string {
	runes := []rune(text)
	if len(runes) > idPromptChars {
		runes = runes[:idPromptChars]
	}
	for i, r := range runes {
		if unicode.IsSpace(r) {
			runes[i] = '_'
		}
	}
	return string(runes)
}

// AIHint returns the first two space separated words of prompt.
func AIHint(prompt string) string {
	words := strings.Split(prompt, " ")
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}
