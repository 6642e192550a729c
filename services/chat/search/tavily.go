// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search provides the web search client used by the search gate.
//
// The Tavily wire contract: POST {base}/search with
// {query, max_results, include_answer}; the response carries a synthesized
// answer plus result snippets. A response without an answer is still a
// valid result; the gate treats it as "no usable answer."
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

var tracer = otel.Tracer("aleutian.chat.search")

// ErrQueryTooShort is returned for queries under two characters; sending
// them upstream only burns quota.
var ErrQueryTooShort = errors.New("search query too short")

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 5
	requestTimeout    = 30 * time.Second
)

// =============================================================================
// Tavily Client
// =============================================================================

// TavilyClient calls the Tavily search API.
//
// The API key is held in a memguard Enclave and only decrypted for the
// duration of each request.
type TavilyClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     *memguard.Enclave
	maxResults int
}

// NewTavilyClient builds a client from the environment:
//
//   - TAVILY_API_KEY (or the Podman secret /run/secrets/tavily_api_key)
//   - TAVILY_BASE_URL: optional override, defaults to https://api.tavily.com
func NewTavilyClient() (*TavilyClient, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/tavily_api_key"
		keyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(keyBytes))
			slog.Info("Read the Tavily API Key from Podman Secrets")
		} else {
			slog.Error("TAVILY_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("TAVILY_API_KEY environment variable not set")
		}
	}
	baseURL := os.Getenv("TAVILY_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return NewTavilyClientWithKey(apiKey, baseURL), nil
}

// NewTavilyClientWithKey builds a client with an explicit key and base URL.
// Used by tests against httptest servers.
func NewTavilyClientWithKey(apiKey, baseURL string) *TavilyClient {
	return &TavilyClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     memguard.NewEnclave([]byte(apiKey)),
		maxResults: defaultMaxResults,
	}
}

// =============================================================================
// Wire Types
// =============================================================================

type tavilySearchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilySearchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// =============================================================================
// Search
// =============================================================================

// Search runs one web search.
//
// # Outputs
//
//   - *datatypes.SearchResult: Answer plus references. The answer may be
//     blank when Tavily could not synthesize one; callers should check
//     HasAnswer.
//   - error: ErrQueryTooShort, or transport/decode failures.
func (t *TavilyClient) Search(ctx context.Context, query string) (*datatypes.SearchResult, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, ErrQueryTooShort
	}

	ctx, span := tracer.Start(ctx, "TavilyClient.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("search.max_results", t.maxResults))

	key, err := t.apiKey.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("open api key enclave: %w", err)
	}
	defer key.Destroy()

	payload := tavilySearchRequest{
		APIKey:        key.String(),
		Query:         query,
		MaxResults:    t.maxResults,
		IncludeAnswer: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/search", bytes.NewBuffer(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed tavilySearchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	result := &datatypes.SearchResult{Answer: parsed.Answer}
	for _, r := range parsed.Results {
		result.References = append(result.References, datatypes.Reference{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	span.SetAttributes(
		attribute.Bool("search.answered", result.HasAnswer()),
		attribute.Int("search.references", len(result.References)),
	)
	return result, nil
}
