// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/extract"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
)

// maxUploadBytes caps one multipart upload.
const maxUploadBytes = 20 << 20 // 20MB

// HandleUpload serves POST /v1/chat/upload.
//
// # Description
//
// Accepts up to four files in the multipart field "files", extracts text
// from each (plain text read directly, images described by the vision
// model), and returns the file names plus the joined documentData block
// the client attaches to its next chat turn. Files never touch disk.
//
// Per-file extraction failures degrade to placeholder sections; the
// request itself fails only on malformed input.
func HandleUpload(extractor *extract.Extractor, opts extensions.ServiceOptions, metrics *observability.ChatMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleUpload")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		form, err := c.MultipartForm()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}
		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
			return
		}
		if len(fileHeaders) > extract.MaxFiles {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many files (max 4)"})
			return
		}
		span.SetAttributes(attribute.Int("upload.files", len(fileHeaders)))

		files := make([]extract.File, 0, len(fileHeaders))
		names := make([]string, 0, len(fileHeaders))
		for _, fh := range fileHeaders {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file: " + fh.Filename})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file: " + fh.Filename})
				return
			}
			files = append(files, extract.File{
				Name:     fh.Filename,
				MIMEType: fh.Header.Get("Content-Type"),
				Data:     data,
			})
			names = append(names, fh.Filename)
		}

		documentData, err := extractor.ExtractAll(ctx, files)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest("upload", false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		_ = opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "upload.extract",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "extract",
			ResourceType: "upload",
			Outcome:      "success",
			Metadata:     map[string]any{"files": len(files)},
		})
		metrics.RecordRequest("upload", true)
		slog.Info("Extracted uploaded files", "files", len(files), "document_bytes", len(documentData))
		c.JSON(http.StatusOK, gin.H{
			"files":         names,
			"document_data": documentData,
		})
	}
}
