package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fyrsmithlabs/docqa/internal/config"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// Owner identifies who uploaded a document.
type Owner struct {
	Username string
	UserID   int64
}

// Processor validates an upload, extracts its text, and splits it into
// ownership-tagged chunks.
type Processor struct {
	parsers  []Parser
	splitter textsplitter.RecursiveCharacter
	maxBytes int64
}

// NewProcessor creates a Processor with the configured chunking parameters.
func NewProcessor(cfg config.DocumentConfig) *Processor {
	return &Processor{
		parsers: []Parser{&PDFParser{}, &TextParser{}},
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		maxBytes: int64(cfg.MaxFileSizeMB) << 20,
	}
}

// Supports reports whether any parser handles the filename.
func (p *Processor) Supports(filename string) bool {
	return p.parserFor(filename) != nil
}

// Process reads the upload and returns its chunks tagged with the owner's
// identity. size is the declared upload size in bytes; the reader is also
// hard-capped at the limit so a lying declaration cannot bypass it.
func (p *Processor) Process(reader io.Reader, filename string, size int64, owner Owner) ([]vectorstore.Chunk, error) {
	if p.maxBytes > 0 && size > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrFileTooLarge, size, p.maxBytes)
	}

	parser := p.parserFor(filename)
	if parser == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}

	if p.maxBytes > 0 {
		reader = io.LimitReader(reader, p.maxBytes+1)
	}
	text, err := parser.Parse(reader, filename)
	if err != nil {
		return nil, err
	}
	if p.maxBytes > 0 && int64(len(text)) > p.maxBytes {
		return nil, fmt.Errorf("%w: content exceeds %d byte limit", ErrFileTooLarge, p.maxBytes)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	pieces, err := p.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	chunks := make([]vectorstore.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, vectorstore.Chunk{
			Text:     piece,
			Filename: filename,
			Username: owner.Username,
			UserID:   owner.UserID,
		})
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	return chunks, nil
}

func (p *Processor) parserFor(filename string) Parser {
	for _, parser := range p.parsers {
		if parser.Supports(filename) {
			return parser
		}
	}
	return nil
}
