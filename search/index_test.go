package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus() []Document {
	return []Document{
		{
			ID:          "/docs/sidebar",
			Title:       "Sidebar navigation",
			Description: "Collapsible sidebar behavior",
			Body:        "The sidebar collapses on narrow viewports and remembers its state.",
			Section:     "components",
			Category:    "navigation",
		},
		{
			ID:          "/docs/theme",
			Title:       "Theme switching",
			Description: "Dark and light themes",
			Body:        "The theme toggle persists the chosen theme across visits.",
			Section:     "components",
			Category:    "appearance",
		},
		{
			ID:          "/guides/install",
			Title:       "Installation",
			Description: "Getting started",
			Body:        "Install the theme and enable the sidebar in your site config.",
			Section:     "guides",
			Category:    "setup",
		},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	require.NoError(t, ix.IndexDocuments(corpus()))
	return ix
}

func TestSearchRanksMatches(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search(context.Background(), "sidebar", "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/docs/sidebar", results[0].ID)
	assert.Equal(t, "Sidebar navigation", results[0].Title)
}

func TestSearchSectionFilter(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search(context.Background(), "sidebar", "guides")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/guides/install", results[0].ID)
}

func TestSearchEmptyQuery(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNoMatches(t *testing.T) {
	ix := newTestIndex(t)

	results, err := ix.Search(context.Background(), "zeppelin", "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMaxResultsCap(t *testing.T) {
	ix, err := New(Options{MaxResults: 1})
	require.NoError(t, err)
	defer ix.Close()
	require.NoError(t, ix.IndexDocuments(corpus()))

	results, err := ix.Search(context.Background(), "sidebar", "")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLoadFile(t *testing.T) {
	data, err := json.Marshal(corpus())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ix, err := New(Options{})
	require.NoError(t, err)
	defer ix.Close()

	n, err := ix.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := ix.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0o644))

	ix, err := New(Options{})
	require.NoError(t, err)
	defer ix.Close()

	_, err = ix.LoadFile(path)
	require.Error(t, err)
}

func TestIndexDocumentWithoutID(t *testing.T) {
	ix, err := New(Options{})
	require.NoError(t, err)
	defer ix.Close()

	err = ix.IndexDocuments([]Document{{Title: "anonymous"}})
	require.Error(t, err)
}
