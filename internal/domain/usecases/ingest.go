// Package usecases contains application business rules.
// Usecases orchestrate entities and depend only on port interfaces.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 100

	defaultIngestWorkers = 4
)

// IngestResult describes one stored document.
type IngestResult struct {
	DocumentID string
	Name       string
	Path       string
	Chunks     int
}

// IngestUseCase chunks documents, embeds the chunks and stores them.
type IngestUseCase struct {
	embedder     ports.EmbeddingService
	vectorStore  ports.VectorStore
	loader       ports.DocumentLoader
	chunkSize    int
	chunkOverlap int
	workers      int
	logger       *zap.Logger
}

// IngestOption configures an IngestUseCase.
type IngestOption func(*IngestUseCase)

// WithIngestWorkers bounds how many files IngestPaths processes at once.
func WithIngestWorkers(n int) IngestOption {
	return func(uc *IngestUseCase) {
		if n > 0 {
			uc.workers = n
		}
	}
}

// WithIngestLogger sets the logger; nil keeps the no-op default.
func WithIngestLogger(l *zap.Logger) IngestOption {
	return func(uc *IngestUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

// NewIngestUseCase creates an IngestUseCase. Non-positive chunkSize and
// negative chunkOverlap fall back to 900 and 100 characters.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	loader ports.DocumentLoader,
	chunkSize, chunkOverlap int,
	opts ...IngestOption,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	uc := &IngestUseCase{
		embedder:     embedder,
		vectorStore:  vectorStore,
		loader:       loader,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		workers:      defaultIngestWorkers,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ingest replaces the stored chunks of doc and returns how many were written.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) (int, error) {
	chunks := uc.chunkDocument(doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", doc.Name, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding %s: got %d vectors for %d chunks", doc.Name, len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := uc.vectorStore.Delete(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("removing previous chunks of %s: %w", doc.Name, err)
	}
	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing %s: %w", doc.Name, err)
	}

	uc.logger.Info("document ingested",
		zap.String("document", doc.Name),
		zap.String("id", doc.ID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// IngestFile loads path and ingests it.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) (IngestResult, error) {
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return IngestResult{Path: path}, fmt.Errorf("loading %s: %w", path, err)
	}
	n, err := uc.Ingest(ctx, doc)
	if err != nil {
		return IngestResult{Path: path}, err
	}
	return IngestResult{DocumentID: doc.ID, Name: doc.Name, Path: path, Chunks: n}, nil
}

// IngestPaths ingests files, directories (recursively) and glob patterns.
// Every file is attempted; failures are collected into one error.
func (uc *IngestUseCase) IngestPaths(ctx context.Context, paths []string) ([]IngestResult, error) {
	files, err := uc.expand(paths)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []IngestResult
		errs    *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for _, path := range files {
		path := path
		g.Go(func() error {
			res, err := uc.IngestFile(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uc.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
				errs = multierror.Append(errs, err)
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, errs.ErrorOrNil()
}

// Delete removes a document from the store.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	return uc.vectorStore.Delete(ctx, documentID)
}

func (uc *IngestUseCase) expand(paths []string) ([]string, error) {
	supported := make(map[string]struct{})
	for _, ext := range uc.loader.SupportedExtensions() {
		supported[strings.ToLower(ext)] = struct{}{}
	}
	isSupported := func(p string) bool {
		_, ok := supported[strings.ToLower(filepath.Ext(p))]
		return ok
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	var errs *multierror.Error
	for _, p := range paths {
		matches := []string{p}
		if strings.ContainsAny(p, "*?[") {
			m, err := filepath.Glob(p)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("pattern %s: %w", p, err))
				continue
			}
			matches = m
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isSupported(path) {
					add(path)
				}
				return nil
			})
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("walking %s: %w", m, err))
			}
		}
	}
	return files, errs.ErrorOrNil()
}

// chunkDocument splits content into overlapping chunks of at most chunkSize
// characters, preferring to break at a paragraph, then a line, then a
// sentence, then any whitespace.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	content := []rune(strings.TrimSpace(doc.Content))
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	for start < len(content) {
		end := start + uc.chunkSize
		if end >= len(content) {
			end = len(content)
		} else if cut := breakPoint(content[start:end], uc.chunkOverlap); cut > 0 {
			end = start + cut
		}

		text := strings.TrimSpace(string(content[start:end]))
		if text != "" {
			index := len(chunks)
			chunks = append(chunks, entities.Chunk{
				ID:         generateChunkID(doc.ID, index),
				DocumentID: doc.ID,
				SourceDoc:  doc.Name,
				Content:    text,
				Index:      index,
			})
		}

		if end == len(content) {
			break
		}
		next := end - uc.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// chunkSeparators are tried in order; the cut lands after the separator.
var chunkSeparators = []string{"\n\n", "\n", ". "}

// breakPoint returns the end of the window's last natural break that lies
// past floor, or -1 when there is none.
func breakPoint(rs []rune, floor int) int {
	window := string(rs)
	for _, sep := range chunkSeparators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			if cut := utf8.RuneCountInString(window[:i]) + utf8.RuneCountInString(sep); cut > floor {
				return cut
			}
		}
	}
	for i := len(rs) - 1; i > floor; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(docID + ":" + strconv.Itoa(index)))
	return hex.EncodeToString(hash[:8])
}
