// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
)

// Searcher performs a web search for a query.
//
// Implemented by the Tavily client in services/chat/search.
type Searcher interface {
	Search(ctx context.Context, query string) (*datatypes.SearchResult, error)
}

// SearchGate decides whether a web search is spent on a message and runs
// it when warranted.
//
// # Description
//
// Two conditions must both hold before a search runs: the user opted in on
// this request, and the search classifier judges the message to need fresh
// information. Every failure past the opt-in check degrades to "no result":
// a classifier error, a search transport error, and an answer-less search
// all yield nil, and the pipeline continues without augmentation.
type SearchGate struct {
	classifier SearchClassifier
	searcher   Searcher
	metrics    *observability.ChatMetrics
}

// NewSearchGate creates a gate. metrics may be nil.
func NewSearchGate(classifier SearchClassifier, searcher Searcher, metrics *observability.ChatMetrics) *SearchGate {
	return &SearchGate{classifier: classifier, searcher: searcher, metrics: metrics}
}

// MaybeSearch returns a search result with a usable answer, or nil.
func (g *SearchGate) MaybeSearch(ctx context.Context, message string, requested bool) *datatypes.SearchResult {
	if !requested || g.searcher == nil {
		g.metrics.RecordSearch(observability.SearchOutcomeSkipped)
		return nil
	}

	need, err := g.classifier.NeedsSearch(ctx, message)
	if err != nil {
		slog.Warn("Search classification failed, skipping search", "error", err)
		g.metrics.RecordSearch(observability.SearchOutcomeError)
		return nil
	}
	g.metrics.RecordVerdict("search", need)
	if !need {
		g.metrics.RecordSearch(observability.SearchOutcomeSkipped)
		return nil
	}

	result, err := g.searcher.Search(ctx, message)
	if err != nil {
		slog.Warn("Web search failed, continuing without results", "error", err)
		g.metrics.RecordSearch(observability.SearchOutcomeError)
		return nil
	}
	if !result.HasAnswer() {
		slog.Debug("Web search returned no usable answer")
		g.metrics.RecordSearch(observability.SearchOutcomeNoAnswer)
		return nil
	}
	g.metrics.RecordSearch(observability.SearchOutcomeAnswered)
	return result
}
