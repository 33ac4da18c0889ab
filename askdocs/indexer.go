package askdocs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/milodocs/pagekit/errors"
)

// Chunk is one indexable slice of a documentation page.
type Chunk struct {
	ID      string
	Page    string // page path the chunk came from
	Title   string
	Content string
}

// Hit is one semantic search result.
type Hit struct {
	Chunk      Chunk
	Similarity float32
}

// IndexerOptions configures an Indexer.
type IndexerOptions struct {
	// Collection names the vector collection. Empty gets "docs".
	Collection string

	// EmbeddingModel names the OpenAI embedding model. Empty gets
	// text-embedding-3-small.
	EmbeddingModel string

	// APIKey authenticates against the embeddings API. Required unless
	// EmbedFunc is set.
	APIKey string

	// EmbedFunc overrides the embedding function, mainly for tests.
	EmbedFunc chromem.EmbeddingFunc

	// ChunkSize is the maximum characters per chunk. Zero gets 2000.
	ChunkSize int

	// Logger for indexing activity. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// Indexer maintains the embeddings collection the assistant retrieves from.
// Pages are split into chunks, embedded, and stored in an in-process vector
// collection that can be exported to and imported from disk.
type Indexer struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
	name       string
	chunkSize  int
	logger     *slog.Logger
}

// NewIndexer creates an indexer with an empty collection.
func NewIndexer(opts IndexerOptions) (*Indexer, error) {
	if opts.Collection == "" {
		opts.Collection = "docs"
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 2000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ef := opts.EmbedFunc
	if ef == nil {
		if opts.APIKey == "" {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Indexer", "NewIndexer", "embeddings api key")
		}
		client := openai.NewClient(opts.APIKey)
		model := openai.EmbeddingModel(opts.EmbeddingModel)
		ef = func(ctx context.Context, text string) ([]float32, error) {
			resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: model,
			})
			if err != nil {
				return nil, fmt.Errorf("embedding request: %w", err)
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("embedding response carried no vectors")
			}
			return resp.Data[0].Embedding, nil
		}
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(opts.Collection, nil, ef)
	if err != nil {
		return nil, errors.Wrap(err, "Indexer", "NewIndexer", "collection creation")
	}

	return &Indexer{
		db:         db,
		collection: col,
		embedFunc:  ef,
		name:       opts.Collection,
		chunkSize:  opts.ChunkSize,
		logger:     opts.Logger.With("subsystem", "indexer"),
	}, nil
}

// IndexPage splits one page into chunks and adds them to the collection.
func (ix *Indexer) IndexPage(ctx context.Context, page, title, body string) (int, error) {
	chunks := SplitChunks(page, title, body, ix.chunkSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:      ch.ID,
			Content: ch.Content,
			Metadata: map[string]string{
				"page":  ch.Page,
				"title": ch.Title,
			},
		}
	}

	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, errors.WrapTransient(err, "Indexer", "IndexPage", "document embedding")
	}

	ix.logger.Debug("page indexed", "page", page, "chunks", len(chunks))
	return len(chunks), nil
}

// Query returns the most similar chunks for a question.
func (ix *Indexer) Query(ctx context.Context, question string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := ix.collection.Query(ctx, question, limit, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Indexer", "Query", "vector query")
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Chunk: Chunk{
				ID:      r.ID,
				Page:    r.Metadata["page"],
				Title:   r.Metadata["title"],
				Content: r.Content,
			},
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (ix *Indexer) Count() int {
	return ix.collection.Count()
}

// Export writes the collection to a file.
func (ix *Indexer) Export(path string) error {
	if err := ix.db.ExportToFile(path, true, ""); err != nil {
		return errors.Wrap(err, "Indexer", "Export", "collection export")
	}
	return nil
}

// Import replaces the collection with one previously exported.
func (ix *Indexer) Import(path string) error {
	if err := ix.db.ImportFromFile(path, ""); err != nil {
		return errors.Wrap(err, "Indexer", "Import", "collection import")
	}
	col := ix.db.GetCollection(ix.name, ix.embedFunc)
	if col == nil {
		return errors.WrapFatal(
			fmt.Errorf("collection %q absent after import", ix.name),
			"Indexer", "Import", "collection lookup")
	}
	ix.collection = col
	return nil
}

// SplitChunks slices a page body into indexable chunks of at most maxLen
// characters, breaking on paragraph boundaries where possible.
func SplitChunks(page, title, body string, maxLen int) []Chunk {
	if body == "" {
		return nil
	}
	if maxLen <= 0 {
		maxLen = 2000
	}

	var chunks []Chunk
	emit := func(text string) {
		chunks = append(chunks, Chunk{
			ID:      page + "#" + strconv.Itoa(len(chunks)),
			Page:    page,
			Title:   title,
			Content: text,
		})
	}

	for len(body) > maxLen {
		cut := maxLen
		// Prefer the last paragraph break inside the window.
		for i := maxLen; i > maxLen/2; i-- {
			if i+1 < len(body) && body[i] == '\n' && body[i+1] == '\n' {
				cut = i
				break
			}
		}
		emit(body[:cut])
		body = body[cut:]
	}
	if body != "" {
		emit(body)
	}
	return chunks
}
