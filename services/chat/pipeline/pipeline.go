// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the chat request pipeline:
//
//	load conversation -> relevance classification -> search gate ->
//	context assembly -> prompt composition -> completion ->
//	reply validation -> atomic append of both turns.
//
// Failure semantics differ by stage. Search failures degrade silently to
// "no result"; classification and completion failures abort the request
// with typed errors and persist nothing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
	"github.com/AleutianAI/AleutianChat/services/llm"
)

var tracer = otel.Tracer("aleutian.chat.pipeline")

// =============================================================================
// Configuration
// =============================================================================

// Config holds pipeline tuning.
type Config struct {
	// Model is the default completion model id. Empty means the LLM
	// client's own default.
	Model string

	// ReasoningModel is used for deep-reasoning requests. Empty means
	// reuse Model.
	ReasoningModel string

	// Temperature for the main completion. Nil means the backend default;
	// an explicit 0 is passed through. Classifications always run at 0.
	Temperature *float32

	// MaxTokens caps the main completion. 0 means backend default.
	MaxTokens int
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline wires the chat stages around injected dependencies.
//
// # Thread Safety
//
// Safe for concurrent use; all state is read-only after construction.
type Pipeline struct {
	llmClient  llm.LLMClient
	chatStore  store.ChatStore
	classifier RelevanceClassifier
	gate       *SearchGate
	assembler  *ContextAssembler
	composer   *PromptComposer
	metrics    *observability.ChatMetrics
	cfg        Config
}

// New creates a pipeline.
//
// # Inputs
//
//   - llmClient: Completion backend. Required.
//   - chatStore: Conversation persistence. Required.
//   - searcher: Web search client. May be nil; the gate then never searches.
//   - metrics: May be nil.
//   - cfg: Tuning. Zero values are acceptable.
func New(llmClient llm.LLMClient, chatStore store.ChatStore, searcher Searcher, metrics *observability.ChatMetrics, cfg Config) (*Pipeline, error) {
	if llmClient == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if chatStore == nil {
		return nil, fmt.Errorf("chat store is required")
	}

	classifier := NewLLMClassifier(classifierGenerateFunc(llmClient, cfg.Model))
	return &Pipeline{
		llmClient:  llmClient,
		chatStore:  chatStore,
		classifier: classifier,
		gate:       NewSearchGate(classifier, searcher, metrics),
		assembler:  NewContextAssembler(),
		composer:   NewPromptComposer(),
		metrics:    metrics,
		cfg:        cfg,
	}, nil
}

// classifierGenerateFunc adapts an LLMClient to the classifier's
// GenerateFunc, pinning temperature to 0 for deterministic verdicts.
func classifierGenerateFunc(client llm.LLMClient, model string) GenerateFunc {
	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		temp := float32(0)
		params := llm.GenerationParams{
			Temperature: &temp,
			MaxTokens:   &maxTokens,
		}
		if model != "" {
			m := model
			params.Model = &m
		}
		return client.Generate(ctx, prompt, params)
	}
}

// Process runs one chat request end to end.
//
// # Description
//
// Loads the owner's conversation, classifies whether history is needed,
// conditionally searches the web, assembles context, composes the prompt,
// calls the model, validates the reply, and appends the user turn and the
// assistant turn in one atomic store write.
//
// # Inputs
//
//   - ctx: Carries cancellation and the trace span.
//   - ownerID: The authenticated principal's user id.
//   - req: Validated chat request.
//
// # Outputs
//
//   - *datatypes.ChatResponse: The appended reply plus metadata.
//   - error: store.ErrNotFound for a missing conversation,
//     *ClassificationError or *CompletionError for stage failures, or a
//     wrapped store error. Nothing is persisted on error.
func (p *Pipeline) Process(ctx context.Context, ownerID string, req *datatypes.ChatRequest) (*datatypes.ChatResponse, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Pipeline.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.conversation_id", req.ConversationID),
		attribute.Bool("chat.search_requested", req.SearchRequested),
		attribute.Bool("chat.deep_reasoning", req.DeepReasoningRequested),
	)

	conv, err := p.chatStore.Find(ctx, ownerID, req.ConversationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load conversation failed")
		if store.IsNotFound(err) {
			p.metrics.RecordError("load", observability.ErrorCodeNotFound)
			return nil, err
		}
		p.metrics.RecordError("load", observability.ErrorCodeStoreError)
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	classifyStart := time.Now()
	needsHistory, err := p.classifier.NeedsHistory(ctx, req.Message)
	p.metrics.RecordStage("classify", time.Since(classifyStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "relevance classification failed")
		p.metrics.RecordError("classify", observability.ErrorCodeClassifier)
		return nil, &ClassificationError{Err: err}
	}
	p.metrics.RecordVerdict("relevance", needsHistory)
	span.SetAttributes(attribute.Bool("chat.needs_history", needsHistory))

	searchStart := time.Now()
	searchResult := p.gate.MaybeSearch(ctx, req.Message, req.SearchRequested)
	p.metrics.RecordStage("search", time.Since(searchStart).Seconds())
	span.SetAttributes(attribute.Bool("chat.search_answered", searchResult.HasAnswer()))

	contextText := p.assembler.Assemble(conv.Messages, needsHistory)
	prompt := p.composer.Compose(ComposeInput{
		Message:       req.Message,
		DocumentData:  req.DocumentData,
		ContextText:   contextText,
		NeedsHistory:  needsHistory,
		Search:        searchResult,
		DeepReasoning: req.DeepReasoningRequested,
	})

	model := p.completionModel(req.DeepReasoningRequested)
	completeStart := time.Now()
	answer, err := p.llmClient.Generate(ctx, prompt, p.completionParams(model))
	p.metrics.RecordStage("complete", time.Since(completeStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		p.metrics.RecordError("complete", observability.ErrorCodeLLMError)
		return nil, &CompletionError{Model: model, Err: err}
	}

	reply := ValidateReply(answer)
	userTurn := datatypes.NewUserTurn(req.Message, req.Files, req.DocumentData)

	persistStart := time.Now()
	_, err = p.chatStore.AppendExchange(ctx, ownerID, req.ConversationID, userTurn, reply)
	p.metrics.RecordStage("persist", time.Since(persistStart).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		p.metrics.RecordError("persist", observability.ErrorCodeStoreError)
		return nil, fmt.Errorf("append exchange: %w", err)
	}

	slog.Info("Chat request processed",
		"conversation_id", req.ConversationID,
		"used_history", needsHistory,
		"search_answered", searchResult.HasAnswer(),
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	resp := datatypes.NewChatResponse(req.RequestID, reply, needsHistory, model)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// completionModel picks the model id for the main call.
func (p *Pipeline) completionModel(deepReasoning bool) string {
	if deepReasoning && p.cfg.ReasoningModel != "" {
		return p.cfg.ReasoningModel
	}
	return p.cfg.Model
}

func (p *Pipeline) completionParams(model string) llm.GenerationParams {
	params := llm.GenerationParams{}
	if model != "" {
		m := model
		params.Model = &m
	}
	if p.cfg.Temperature != nil {
		t := *p.cfg.Temperature
		params.Temperature = &t
	}
	if p.cfg.MaxTokens > 0 {
		mt := p.cfg.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}
