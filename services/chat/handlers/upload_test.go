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
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/extract"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
)

// =============================================================================
// Test Setup
// =============================================================================

func uploadRouter(t *testing.T, describe extract.DescribeFunc) *gin.Engine {
	t.Helper()

	opts := extensions.DefaultOptions()
	router := gin.New()
	router.Use(middleware.AuthMiddleware(opts.AuthProvider, opts.AuditLogger))
	router.POST("/v1/chat/upload", HandleUpload(extract.NewExtractor(describe), opts, nil))
	return router
}

// multipartBody builds a multipart form with one part per (name, content)
// pair under the "files" field.
func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func postMultipart(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/v1/chat/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HandleUpload Tests
// =============================================================================

// TestHandleUpload_TextFiles verifies extraction of plain text uploads
// into the document_data block.
func TestHandleUpload_TextFiles(t *testing.T) {
	router := uploadRouter(t, nil)

	body, contentType := multipartBody(t, map[string]string{
		"notes.txt": "meeting at noon",
	})
	w := postMultipart(router, body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Files        []string `json:"files"`
		DocumentData string   `json:"document_data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"notes.txt"}, resp.Files)
	assert.Equal(t, "--- Content from notes.txt ---\nmeeting at noon", resp.DocumentData)
}

// TestHandleUpload_VisionDescribe verifies image parts reach the vision
// backend.
func TestHandleUpload_VisionDescribe(t *testing.T) {
	called := false
	router := uploadRouter(t, func(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
		called = true
		return "described image", nil
	})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="files"; filename="pic.png"`}
	header["Content-Type"] = []string{"image/png"}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	w := postMultipart(router, &buf, writer.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, called)
	assert.Contains(t, w.Body.String(), "described image")
}

// TestHandleUpload_NoFiles verifies an empty form is rejected.
func TestHandleUpload_NoFiles(t *testing.T) {
	router := uploadRouter(t, nil)

	body, contentType := multipartBody(t, nil)
	w := postMultipart(router, body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleUpload_TooManyFiles verifies the four file cap.
func TestHandleUpload_TooManyFiles(t *testing.T) {
	router := uploadRouter(t, nil)

	files := map[string]string{
		"a.txt": "1", "b.txt": "2", "c.txt": "3", "d.txt": "4", "e.txt": "5",
	}
	body, contentType := multipartBody(t, files)
	w := postMultipart(router, body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleUpload_NotMultipart verifies a JSON body is rejected.
func TestHandleUpload_NotMultipart(t *testing.T) {
	router := uploadRouter(t, nil)

	w := postMultipart(router, bytes.NewBufferString(`{"files":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
