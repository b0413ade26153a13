// Package ocrtest provides a scripted OCR engine for tests.
package ocrtest

import (
	"context"
	"sync"

	"github.com/adverant/nexus/pdfocr/internal/ocr"
)

// Engine returns Pages in call order, cycling when calls outnumber pages.
type Engine struct {
	Pages []ocr.PageText
	// Err, when set, is returned from call number FailOn (zero-based).
	Err    error
	FailOn int

	mu         sync.Mutex
	calls      int
	withTokens []bool
}

// Name identifies the fake in logs.
func (e *Engine) Name() string { return "fake" }

// Recognize returns the next scripted page. Tokens are dropped unless requested.
func (e *Engine) Recognize(ctx context.Context, pngData []byte, withTokens bool) (*ocr.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	call := e.calls
	e.calls++
	e.withTokens = append(e.withTokens, withTokens)

	if e.Err != nil && call == e.FailOn {
		return nil, e.Err
	}
	if len(e.Pages) == 0 {
		return &ocr.PageText{}, nil
	}
	page := e.Pages[call%len(e.Pages)]
	out := &ocr.PageText{Text: page.Text, Confidence: page.Confidence}
	if withTokens {
		out.Tokens = append([]ocr.Token(nil), page.Tokens...)
	}
	return out, nil
}

// Calls returns how many times Recognize ran.
func (e *Engine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// TokensRequested reports the withTokens argument of every call so far.
func (e *Engine) TokensRequested() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bool(nil), e.withTokens...)
}
