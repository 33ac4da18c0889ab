// Package search provides the full-text index behind the site search box.
// The corpus is the JSON document array emitted by the site build, one entry
// per page.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/milodocs/pagekit/errors"
)

// Document is one indexed page.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Body        string `json:"body"`
	Section     string `json:"section"`
	Category    string `json:"category"`
}

// Result is one ranked match.
type Result struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Section     string  `json:"section"`
	Score       float64 `json:"score"`
	Fragment    string  `json:"fragment"` // highlighted body excerpt
}

// Options configures an Index.
type Options struct {
	// Path stores the index on disk. Empty keeps it in memory.
	Path string

	// MaxResults caps one query's result set. Zero gets 25.
	MaxResults int

	// Logger for index activity. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// Index wraps a bleve index over the site's pages.
type Index struct {
	idx        bleve.Index
	maxResults int
	logger     *slog.Logger
}

func docMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	page := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Store = true
	keyword.Analyzer = "keyword"

	page.AddFieldMappingsAt("title", text)
	page.AddFieldMappingsAt("description", text)
	page.AddFieldMappingsAt("body", text)
	page.AddFieldMappingsAt("section", keyword)
	page.AddFieldMappingsAt("category", keyword)

	m.DefaultMapping = page
	return m
}

// New opens or creates an index.
func New(opts Options) (*Index, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 25
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var idx bleve.Index
	var err error
	if opts.Path == "" {
		idx, err = bleve.NewMemOnly(docMapping())
	} else if _, statErr := os.Stat(opts.Path); statErr == nil {
		idx, err = bleve.Open(opts.Path)
	} else {
		idx, err = bleve.New(opts.Path, docMapping())
	}
	if err != nil {
		return nil, errors.Wrap(err, "Index", "New", "index open")
	}

	return &Index{
		idx:        idx,
		maxResults: opts.MaxResults,
		logger:     opts.Logger.With("subsystem", "search"),
	}, nil
}

// LoadFile indexes the JSON document array at path, replacing documents that
// share ids with existing entries.
func (ix *Index) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "Index", "LoadFile", "corpus read")
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return 0, errors.WrapInvalid(err, "Index", "LoadFile", "corpus decoding")
	}
	return len(docs), ix.IndexDocuments(docs)
}

// IndexDocuments adds documents in one batch.
func (ix *Index) IndexDocuments(docs []Document) error {
	batch := ix.idx.NewBatch()
	for _, doc := range docs {
		if doc.ID == "" {
			return errors.WrapInvalid(
				errors.ErrInvalidConfig, "Index", "IndexDocuments", "document without id")
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			return errors.Wrap(err, "Index", "IndexDocuments", "batch build")
		}
	}
	if err := ix.idx.Batch(batch); err != nil {
		return errors.Wrap(err, "Index", "IndexDocuments", "batch execution")
	}
	ix.logger.Debug("documents indexed", "count", len(docs))
	return nil
}

// Search runs a query and returns ranked results. An empty query returns
// nothing. A section narrows matches to pages in that section.
func (ix *Index) Search(ctx context.Context, query, section string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	match := bleve.NewMatchQuery(query)
	var q = bleve.NewBooleanQuery()
	q.AddMust(match)
	if section != "" {
		term := bleve.NewTermQuery(section)
		term.SetField("section")
		q.AddMust(term)
	}

	req := bleve.NewSearchRequestOptions(q, ix.maxResults, 0, false)
	req.Fields = []string{"title", "description", "section"}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("body")

	res, err := ix.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "Index", "Search", "query execution")
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if v, ok := hit.Fields["title"].(string); ok {
			r.Title = v
		}
		if v, ok := hit.Fields["description"].(string); ok {
			r.Description = v
		}
		if v, ok := hit.Fields["section"].(string); ok {
			r.Section = v
		}
		if frags, ok := hit.Fragments["body"]; ok && len(frags) > 0 {
			r.Fragment = frags[0]
		}
		out = append(out, r)
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (ix *Index) Count() (uint64, error) {
	return ix.idx.DocCount()
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.idx.Close()
}
