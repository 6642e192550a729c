// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract turns uploaded files into the documentData text block
// that rides along with a chat turn.
//
// Plain text files are read directly; images are described by a
// vision-capable model; anything else yields a placeholder line. Per-file
// failures degrade to a placeholder and never fail the upload.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"
)

// MaxFiles is the maximum number of files per upload, matching the limit
// enforced client-side.
const MaxFiles = 4

// visionInstruction is the prompt sent with each image.
const visionInstruction = "Extract each and every information you can extract from the image."

// maxSectionChars caps one file's contribution to documentData. Oversized
// extractions are windowed down with a text splitter before joining.
const maxSectionChars = 8000

var (
	chunkSize    = 1000
	chunkOverlap = chunkSize / 10

	defaultSeparators  = []string{"\n\n", "\n", " ", ""}
	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// DescribeFunc produces text from image bytes. Matches the signature of
// llm.VisionClient.DescribeImage so any vision backend can be injected.
type DescribeFunc func(ctx context.Context, data []byte, mimeType string, instruction string) (string, error)

// File is one uploaded file held in memory.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extractor converts uploaded files into a single documentData block.
type Extractor struct {
	describe DescribeFunc
}

// NewExtractor creates an extractor. describe may be nil, in which case
// images yield placeholder sections.
func NewExtractor(describe DescribeFunc) *Extractor {
	return &Extractor{describe: describe}
}

// ExtractAll extracts every file concurrently and joins the sections in
// input order.
//
// # Outputs
//
//   - string: Sections joined as "--- Content from <name> ---\n<content>"
//     with blank lines between files. Empty when no files were given.
//   - error: Non-nil only when more than MaxFiles files were passed.
//     Per-file extraction failures never surface here.
func (e *Extractor) ExtractAll(ctx context.Context, files []File) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	if len(files) > MaxFiles {
		return "", fmt.Errorf("too many files: %d (max %d)", len(files), MaxFiles)
	}

	sections := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			sections[i] = e.extractOne(gctx, f)
			return nil
		})
	}
	// Workers only report success; Wait is for completion, not errors.
	_ = g.Wait()

	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = fmt.Sprintf("--- Content from %s ---\n%s", f.Name, sections[i])
	}
	return strings.Join(parts, "\n\n"), nil
}

func (e *Extractor) extractOne(ctx context.Context, f File) string {
	switch {
	case isPlainText(f):
		return windowText(f.Name, string(f.Data))
	case isImage(f):
		if e.describe == nil {
			return placeholder(f.Name)
		}
		text, err := e.describe(ctx, f.Data, f.MIMEType, visionInstruction)
		if err != nil {
			return placeholder(f.Name)
		}
		return windowText(f.Name, text)
	default:
		return placeholder(f.Name)
	}
}

func placeholder(name string) string {
	return fmt.Sprintf("Could not extract content from %s", name)
}

func isPlainText(f File) bool {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".txt", ".md":
		return true
	}
	return strings.HasPrefix(f.MIMEType, "text/")
}

func isImage(f File) bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// windowText caps a section at maxSectionChars. Oversized text is split
// into overlapping chunks and rejoined up to the cap, so the cut lands on
// a separator instead of mid-sentence.
func windowText(name, text string) string {
	if len(text) <= maxSectionChars {
		return text
	}
	chunks, err := splitterForFile(name).SplitText(text)
	if err != nil || len(chunks) == 0 {
		return text[:maxSectionChars]
	}
	var b strings.Builder
	for _, chunk := range chunks {
		if b.Len()+len(chunk)+1 > maxSectionChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(chunk)
	}
	if b.Len() == 0 {
		return text[:maxSectionChars]
	}
	return b.String()
}

func splitterForFile(name string) textsplitter.TextSplitter {
	separators := defaultSeparators
	if strings.ToLower(filepath.Ext(name)) == ".md" {
		separators = markdownSeparators
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
}
