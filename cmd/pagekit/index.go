package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milodocs/pagekit/askdocs"
	"github.com/milodocs/pagekit/bootstrap"
	"github.com/milodocs/pagekit/config"
	"github.com/milodocs/pagekit/dom"
)

var indexOut string

var indexCmd = &cobra.Command{
	Use:   "index <content-dir>",
	Short: "Build the assistant embeddings index from rendered pages",
	Long: `Walks the rendered site, splits each page into chunks, embeds them with
the configured OpenAI model, and exports the vector collection. Requires
OPENAI_API_KEY.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger := bootstrap.NewLogger(cfg.Logging)

		indexer, err := askdocs.NewIndexer(askdocs.IndexerOptions{
			Collection:     cfg.Index.Collection,
			EmbeddingModel: cfg.Index.EmbeddingModel,
			APIKey:         os.Getenv("OPENAI_API_KEY"),
			ChunkSize:      cfg.Index.ChunkSize,
			Logger:         logger,
		})
		if err != nil {
			return err
		}

		contentDir := args[0]
		pages := 0
		chunks := 0
		err = filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".html") {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			doc, err := dom.Parse(f)
			f.Close()
			if err != nil {
				logger.Warn("skipping unparseable page", "page", path, "error", err)
				return nil
			}

			rel, err := filepath.Rel(contentDir, path)
			if err != nil {
				return err
			}
			page := "/" + filepath.ToSlash(rel)

			n, err := indexer.IndexPage(cmd.Context(), page, pageTitle(doc), pageBody(doc))
			if err != nil {
				return fmt.Errorf("indexing %s: %w", page, err)
			}
			pages++
			chunks += n
			return nil
		})
		if err != nil {
			return err
		}

		out := indexOut
		if out == "" {
			out = cfg.Index.VectorPath
		}
		if out != "" {
			if err := indexer.Export(out); err != nil {
				return err
			}
		}

		logger.Info("index built", "pages", pages, "chunks", chunks, "output", out)
		return nil
	},
}

func pageTitle(doc *dom.Document) string {
	if el, err := doc.QuerySelector("title"); err == nil && el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func pageBody(doc *dom.Document) string {
	if body := doc.Body(); body != nil {
		return strings.TrimSpace(body.Text())
	}
	return ""
}

func init() {
	indexCmd.Flags().StringVar(&indexOut, "output", "", "export path for the vector collection (defaults to index.vector_path)")
	rootCmd.AddCommand(indexCmd)
}
