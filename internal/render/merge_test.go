package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boletim-pdf/internal/domain"
	"boletim-pdf/internal/render"
	"boletim-pdf/internal/render/rendertest"
)

func mustBuild(t *testing.T, label string, pages int) []byte {
	t.Helper()
	pdf, err := rendertest.BuildPDF(label, pages)
	require.NoError(t, err)
	return pdf
}

func TestMergePDFs_PageOrder(t *testing.T) {
	merged, err := render.MergePDFs([][]byte{
		mustBuild(t, "A", 2),
		mustBuild(t, "B", 1),
		mustBuild(t, "C", 3),
	})
	require.NoError(t, err)

	n, err := rendertest.PageCount(merged)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	texts, err := rendertest.PageTexts(merged)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-p1", "A-p2", "B-p1", "C-p1", "C-p2", "C-p3"}, texts)
}

func TestAssembler_SkipsEmptyBuffers(t *testing.T) {
	a := render.NewAssembler()

	n, err := a.Append(mustBuild(t, "A", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = a.Append(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.Append(mustBuild(t, "C", 2))
	require.NoError(t, err)

	assert.Equal(t, 2, a.Documents())
	assert.Equal(t, 1, a.Skipped())
	assert.Equal(t, 3, a.Pages())

	merged, err := a.Bytes()
	require.NoError(t, err)
	texts, err := rendertest.PageTexts(merged)
	require.NoError(t, err)
	assert.Equal(t, []string{"A-p1", "C-p1", "C-p2"}, texts)
}

func TestAssembler_NoDocuments(t *testing.T) {
	_, err := render.NewAssembler().Bytes()
	assert.ErrorIs(t, err, domain.ErrNoDocuments)

	_, err = render.MergePDFs([][]byte{{}, nil})
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}

func TestAssembler_SingleDocumentPassesThrough(t *testing.T) {
	doc := mustBuild(t, "solo", 2)
	merged, err := render.MergePDFs([][]byte{nil, doc})
	require.NoError(t, err)
	assert.Equal(t, doc, merged)
}

func TestAssembler_RejectsGarbage(t *testing.T) {
	_, err := render.NewAssembler().Append([]byte("definitely not a pdf"))
	assert.ErrorIs(t, err, domain.ErrMerge)
}
