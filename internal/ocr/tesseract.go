/**
 * Tesseract OCR - page text and word boxes
 *
 * Each call gets its own gosseract client, so one engine can serve concurrent requests.
 */

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	// TessdataPrefix overrides the tessdata directory. Empty uses the library default.
	TessdataPrefix string
	Languages      []string
}

// Tesseract handles OCR using libtesseract through gosseract
type Tesseract struct {
	cfg           TesseractConfig
	clientFactory func() *gosseract.Client
}

// NewTesseract creates a new Tesseract engine
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Tesseract{cfg: cfg, clientFactory: gosseract.NewClient}
}

// Name identifies the engine in logs.
func (t *Tesseract) Name() string { return "tesseract" }

// Recognize performs OCR on one page image
func (t *Tesseract) Recognize(ctx context.Context, pngData []byte, withTokens bool) (*PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := t.clientFactory()
	defer client.Close()

	if t.cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.cfg.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.cfg.Languages...); err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	result := &PageText{Text: text}
	if !withTokens {
		result.Confidence = estimateConfidence(text)
		return result, nil
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract word boxes failed: %w", err)
	}
	result.Tokens = tokensFromBoxes(boxes)
	result.Confidence = meanConfidence(result.Tokens)
	return result, nil
}

func tokensFromBoxes(boxes []gosseract.BoundingBox) []Token {
	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{
			Index:      len(tokens),
			Text:       word,
			Confidence: b.Confidence / 100.0,
			BoundingBox: BoundingBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}
	return tokens
}

func meanConfidence(tokens []Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range tokens {
		sum += tok.Confidence
	}
	return sum / float64(len(tokens))
}

// estimateConfidence scores text quality when word confidences are not available
func estimateConfidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	confidence := 0.5

	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(strings.Fields(text)) > 100 {
		confidence += 0.1
	}

	alphaCount := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	alphaRatio := float64(alphaCount) / float64(len(text))
	if alphaRatio > 0.5 && alphaRatio < 0.9 {
		confidence += 0.1
	}

	// Cap at reasonable maximum for Tesseract
	if confidence > 0.85 {
		confidence = 0.85
	}
	return confidence
}
