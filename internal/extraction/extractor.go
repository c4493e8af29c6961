// Package extraction reads a registered document's stored bytes and turns
// them into the plain text body a reprocessing run segments. Text-native
// content types are read directly. PDFs are validated and page-counted,
// then their body is read from the companion text blob the ingestion
// pipeline stores next to the original (same key with a ".txt" suffix);
// full PDF text extraction itself happens upstream.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/stillharbor/anchorage/pkg/storage"
)

// CompanionSuffix names the extracted-text blob stored beside a binary
// original.
const CompanionSuffix = ".txt"

// Domain errors for extraction operations.
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrNotText         = errors.New("document bytes are not valid text")
	ErrInvalidPDF      = errors.New("invalid pdf document")
	ErrNoCompanionText = errors.New("no companion text blob for binary document")
)

// Result carries the extracted body and optional page count.
type Result struct {
	Text      string
	PageCount *int
}

// Extractor produces a document's text body from its stored blob.
type Extractor interface {
	Extract(ctx context.Context, storageKey, contentType string) (*Result, error)
}

// New creates the default extractor over the blob store.
func New(store storage.System, logger *slog.Logger) Extractor {
	return &extractor{
		store:  store,
		logger: logger.With("system", "extraction"),
	}
}

type extractor struct {
	store  storage.System
	logger *slog.Logger
}

func (e *extractor) Extract(ctx context.Context, storageKey, contentType string) (*Result, error) {
	switch baseType(contentType) {
	case "text/plain", "text/markdown", "text/html":
		data, err := e.download(ctx, storageKey)
		if err != nil {
			return nil, err
		}
		return textResult(data, nil)
	case "application/pdf":
		return e.extractPDF(ctx, storageKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

func (e *extractor) extractPDF(ctx context.Context, storageKey string) (*Result, error) {
	data, err := e.download(ctx, storageKey)
	if err != nil {
		return nil, err
	}

	rs := bytes.NewReader(data)
	if err := api.Validate(rs, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind pdf: %w", err)
	}

	pages, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: page count: %w", ErrInvalidPDF, err)
	}

	text, err := e.download(ctx, storageKey+CompanionSuffix)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoCompanionText, storageKey)
		}
		return nil, err
	}

	e.logger.Info("extracted pdf body",
		"key", storageKey,
		"pages", pages,
		"text_bytes", len(text),
	)
	return textResult(text, &pages)
}

func (e *extractor) download(ctx context.Context, key string) ([]byte, error) {
	reader, err := e.store.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func textResult(data []byte, pages *int) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, ErrNotText
	}
	return &Result{Text: string(data), PageCount: pages}, nil
}

func baseType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}
