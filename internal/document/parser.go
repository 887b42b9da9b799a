// Package document turns an uploaded CV, addressed by URL, into plain
// text for prompt construction.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxDocumentBytes    = 20 << 20
)

var ErrEmptyDocument = errors.New("document contains no extractable text")

type Parser struct {
	client *http.Client
}

func NewParser() *Parser {
	return &Parser{client: &http.Client{Timeout: defaultFetchTimeout}}
}

// Parse fetches the document at url and extracts its plain text.
// PDF payloads go through the PDF reader; anything else is assumed to
// already be text.
func (p *Parser) Parse(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("document url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build document request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	if isPDF(body) {
		return extractPDFText(body)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func isPDF(body []byte) bool {
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

func extractPDFText(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
