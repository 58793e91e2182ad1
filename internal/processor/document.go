// Package processor extracts raw text from governing-plan source documents
// and splits it into overlapping fixed-size character chunks for embedding.
package processor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/AltoqOfficial/altoq-pwa-sub001/internal/models"

	"github.com/ledongthuc/pdf"
)

// DocumentProcessor handles document text extraction and chunking.
type DocumentProcessor struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewDocumentProcessor creates a new document processor.
func NewDocumentProcessor(chunkSize, chunkOverlap int) *DocumentProcessor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &DocumentProcessor{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ExtractText extracts raw text from a source document. PDFs go through the
// PDF reader; anything else is read as plain text.
func (p *DocumentProcessor) ExtractText(filePath string) (string, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		return extractPDFText(filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

func extractPDFText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract plain text: %w", err)
	}

	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	return buf.String(), nil
}

// ProcessDocument extracts, normalizes and chunks a source document for the
// given party. Returned chunks carry no embeddings yet.
func (p *DocumentProcessor) ProcessDocument(filePath, party string) ([]models.EmbeddingChunk, error) {
	text, err := p.ExtractText(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	text = NormalizeWhitespace(text)
	if text == "" {
		return nil, fmt.Errorf("document %s contains no text", filePath)
	}

	source := filepath.Base(filePath)
	pieces := p.ChunkText(text)

	chunks := make([]models.EmbeddingChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.EmbeddingChunk{
			Party:      party,
			ChunkIndex: i,
			Content:    piece,
			Source:     source,
		}
	}
	return chunks, nil
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// ChunkText splits text into fixed-size character chunks. Consecutive chunks
// overlap by ChunkOverlap characters so sentences cut at a boundary still
// appear whole in one of them.
func (p *DocumentProcessor) ChunkText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := p.ChunkSize - p.ChunkOverlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + p.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
