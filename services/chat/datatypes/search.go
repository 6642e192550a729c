// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Web search result types shared by the search client and the prompt
// composer.
package datatypes

import "strings"

// Reference is one cited source from a web search.
type Reference struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

// SearchResult is the distilled outcome of a web search: a synthesized
// answer plus the sources it was drawn from.
//
// A result without a usable answer is treated the same as no result at all;
// callers should check HasAnswer before composing prompts around it.
type SearchResult struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}

// HasAnswer reports whether the search produced a non-blank answer.
func (s *SearchResult) HasAnswer() bool {
	return s != nil && strings.TrimSpace(s.Answer) != ""
}
