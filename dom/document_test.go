package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Docs</title></head>
<body class="layout">
  <nav id="sidebar" class="nav collapsed" data-component="sidebar"></nav>
  <main>
    <article data-component="collapse" data-collapse-id="intro">
      <h2 id="intro">Intro</h2>
      <p class="lead">Welcome to the docs.</p>
      <pre><code>go build ./...</code></pre>
    </article>
    <button id="theme-button" data-component="theme-toggle">Theme</button>
  </main>
</body>
</html>`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseString(src)
	require.NoError(t, err)
	return doc
}

func TestQuerySelector(t *testing.T) {
	doc := mustParse(t, samplePage)

	el, err := doc.QuerySelector("#sidebar")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "nav", el.Tag())

	el, err = doc.QuerySelector("article .lead")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "Welcome to the docs.", el.Text())

	el, err = doc.QuerySelector(`[data-component=theme-toggle]`)
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "theme-button", el.ID())

	el, err = doc.QuerySelector(".missing")
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestQuerySelectorInvalid(t *testing.T) {
	doc := mustParse(t, samplePage)

	_, err := doc.QuerySelector("")
	assert.Error(t, err)

	_, err = doc.QuerySelector("nav > ul")
	assert.Error(t, err)
}

func TestElementsWithAttr(t *testing.T) {
	doc := mustParse(t, samplePage)

	els := doc.ElementsWithAttr("data-component")
	require.Len(t, els, 3)
	assert.Equal(t, "sidebar", els[0].Attr("data-component"))
	assert.Equal(t, "collapse", els[1].Attr("data-component"))
	assert.Equal(t, "theme-toggle", els[2].Attr("data-component"))
}

func TestAttrRoundTrip(t *testing.T) {
	doc := mustParse(t, samplePage)

	el, err := doc.QuerySelector("#sidebar")
	require.NoError(t, err)

	assert.False(t, el.HasAttr("aria-hidden"))
	el.SetAttr("aria-hidden", "true")
	assert.Equal(t, "true", el.Attr("aria-hidden"))

	el.RemoveAttr("aria-hidden")
	assert.False(t, el.HasAttr("aria-hidden"))
}

func TestClassManipulation(t *testing.T) {
	doc := mustParse(t, samplePage)

	el, err := doc.QuerySelector("#sidebar")
	require.NoError(t, err)

	assert.True(t, el.HasClass("collapsed"))
	el.RemoveClass("collapsed")
	assert.False(t, el.HasClass("collapsed"))
	assert.True(t, el.HasClass("nav"))

	assert.True(t, el.ToggleClass("open"))
	assert.False(t, el.ToggleClass("open"))
}

func TestAppendAndContains(t *testing.T) {
	doc := mustParse(t, samplePage)

	body := doc.Body()
	require.NotNil(t, body)

	created := doc.CreateElement("div")
	created.SetAttr("data-component", "chat")
	assert.False(t, doc.Contains(created))

	body.AppendChild(created)
	assert.True(t, doc.Contains(created))

	created.Remove()
	assert.False(t, doc.Contains(created))
}

func TestElementEquality(t *testing.T) {
	doc := mustParse(t, samplePage)

	a, err := doc.QuerySelector("#sidebar")
	require.NoError(t, err)
	b, err := doc.QuerySelector("nav.nav")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))

	c, err := doc.QuerySelector("#theme-button")
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestRenderRoundTrip(t *testing.T) {
	doc := mustParse(t, samplePage)

	el, err := doc.QuerySelector("#theme-button")
	require.NoError(t, err)
	el.SetAttr("data-theme", "dark")

	out := doc.HTML()
	assert.Contains(t, out, `data-theme="dark"`)

	reparsed := mustParse(t, out)
	el2, err := reparsed.QuerySelector(`[data-theme=dark]`)
	require.NoError(t, err)
	require.NotNil(t, el2)
}

func TestSingletonSelector(t *testing.T) {
	assert.True(t, IsSingletonSelector("#sidebar"))
	assert.False(t, IsSingletonSelector(".nav"))
	assert.False(t, IsSingletonSelector("#a #b"))
	assert.False(t, IsSingletonSelector("nav"))
}
