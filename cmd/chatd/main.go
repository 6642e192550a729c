// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chatd starts the AleutianChat HTTP server.
//
// Configuration comes from an optional YAML file (--config) with
// environment variables taking precedence over file values.
//
// # Environment Variables
//
//   - CHAT_PORT: HTTP server port (default: 12215)
//   - LLM_BACKEND_TYPE: LLM provider - openai, ollama (default: openai)
//   - CHAT_MODEL: Default completion model id
//   - CHAT_REASONING_MODEL: Model id for deep-reasoning requests
//   - CHAT_STORE_PATH: Conversation database directory (default: ./data/conversations)
//   - TAVILY_API_KEY: Enables web search when set
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o chatd ./cmd/chatd
//
//	# Run
//	./chatd --config config.yaml
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianChat/services/chat"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chatd",
	Short: "Runs the Aleutian conversational chat service",
	Long: `chatd serves the chat API: relevance-gated conversation history,
optional web search augmentation, file upload extraction, and durable
conversation storage.`,
	RunE: runServer,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}

func main() {
	// Wipe secret enclaves on interrupt.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	slog.Info("Starting chat service",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"store_path", cfg.StorePath,
	)

	// Open source builds pass nil; enterprise builds supply custom
	// ServiceOptions here.
	svc, err := chat.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create chat service: %w", err)
	}

	return svc.Run()
}

// loadConfig reads the optional YAML file, then applies environment
// variable overrides on top.
func loadConfig(path string) (chat.Config, error) {
	var cfg chat.Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
		slog.Info("Configuration loaded", "path", path)
	}

	cfg.Port = getEnvInt("CHAT_PORT", cfg.Port)
	cfg.LLMBackend = getEnvString("LLM_BACKEND_TYPE", cfg.LLMBackend)
	cfg.Model = getEnvString("CHAT_MODEL", cfg.Model)
	cfg.ReasoningModel = getEnvString("CHAT_REASONING_MODEL", cfg.ReasoningModel)
	cfg.StorePath = getEnvString("CHAT_STORE_PATH", cfg.StorePath)
	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.GinMode = getEnvString("GIN_MODE", cfg.GinMode)

	return cfg, nil
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
