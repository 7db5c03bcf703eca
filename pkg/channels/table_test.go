package channels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itastack/internal/models"
	"itastack/pkg/container"
)

func testRows() []models.Channel {
	return []models.Channel{
		{ID: 0, LowerMass: 0, UpperMass: 1000, CenterMass: 0, Assign: "", Desc: "total"},
		{ID: 1, LowerMass: 0, UpperMass: 1000, CenterMass: 0, Assign: "", Desc: "sum of peaks"},
		{ID: 2, LowerMass: 22.9, UpperMass: 23.1, CenterMass: 22.99, Assign: "Na+", Desc: "sodium"},
		{ID: 3, LowerMass: 57.9, UpperMass: 58.1, CenterMass: 57.96, Assign: "NaCl", Desc: ""},
		{ID: 4, LowerMass: 23.0, UpperMass: 23.2, CenterMass: 23.1, Assign: "", Desc: "Na-like"},
		{ID: 5, LowerMass: 38.9, UpperMass: 39.1, CenterMass: 38.96, Assign: "K+", Desc: "potassium"},
	}
}

func writeRows(t *testing.T, m *container.MemTree, rows []models.Channel) {
	t.Helper()
	for k, ch := range rows {
		base := container.PeakPath(k)
		m.SetInt(container.Join(base, container.FieldID), int64(ch.ID))
		m.SetFloat(container.Join(base, container.FieldLMass), ch.LowerMass)
		m.SetFloat(container.Join(base, container.FieldUMass), ch.UpperMass)
		m.SetFloat(container.Join(base, container.FieldCMass), ch.CenterMass)
		m.SetString(container.Join(base, container.FieldAssign), ch.Assign)
		m.SetString(container.Join(base, container.FieldDesc), ch.Desc)
	}
}

func TestParse(t *testing.T) {
	m := container.NewMemTree()
	writeRows(t, m, testRows())

	tab, err := Parse(m)
	require.NoError(t, err)
	assert.Equal(t, len(testRows()), tab.Len())
	assert.Equal(t, testRows(), tab.Channels())

	ch, ok := tab.ByID(5)
	require.True(t, ok)
	assert.Equal(t, "K+", ch.Assign)
	_, ok = tab.ByID(42)
	assert.False(t, ok)
}

func TestParseOptionalStrings(t *testing.T) {
	m := container.NewMemTree()
	base := container.PeakPath(0)
	m.SetInt(container.Join(base, container.FieldID), 2)
	m.SetFloat(container.Join(base, container.FieldLMass), 10)
	m.SetFloat(container.Join(base, container.FieldUMass), 12)
	m.SetInt(container.Join(base, container.FieldCMass), 11)

	tab, err := Parse(m)
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, "11.00u", tab.Channels()[0].Label())
}

func TestParseRejectsBadRows(t *testing.T) {
	m := container.NewMemTree()
	rows := testRows()[:3]
	rows[2].CenterMass = 30 // outside [22.9, 23.1]
	writeRows(t, m, rows)

	_, err := Parse(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrFormat))

	m = container.NewMemTree()
	writeRows(t, m, testRows()[:1])
	m.Delete(container.Join(container.PeakPath(0), container.FieldUMass))
	_, err = Parse(m)
	assert.True(t, errors.Is(err, models.ErrFormat))
}

func TestByMass(t *testing.T) {
	tab := New(testRows())

	tests := []struct {
		mass   float64
		wantID int
	}{
		{22.95, 2},
		{22.9, 2},  // lower bound inclusive
		{23.1, 2},  // upper bound inclusive, first row wins over ID 4
		{23.15, 4}, // only the overlapping row
		{39.0, 5},
	}
	for _, tc := range tests {
		ch, err := tab.ByMass(tc.mass)
		require.NoError(t, err, "mass %v", tc.mass)
		require.NotNil(t, ch)
		assert.Equal(t, tc.wantID, ch.ID, "mass %v", tc.mass)
	}
}

func TestByMassSentinelAndReserved(t *testing.T) {
	tab := New(testRows())

	ch, err := tab.ByMass(0)
	assert.NoError(t, err)
	assert.Nil(t, ch)

	// 500 is only inside the reserved rows 0 and 1
	_, err = tab.ByMass(500)
	require.Error(t, err)
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 500.0, nf.Mass)

	_, err = tab.ByMass(1e6)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestByNameStrict(t *testing.T) {
	tab := New(testRows())

	strict, err := tab.ByName([]string{"Na"}, true)
	require.NoError(t, err)
	require.Len(t, strict, 1)
	assert.Equal(t, 2, strict[0].ID, "strict Na should match Na+ only")

	loose, err := tab.ByName([]string{"Na"}, false)
	require.NoError(t, err)
	ids := []int{}
	for _, ch := range loose {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []int{2, 3, 4}, ids, "non strict Na should match Na+, NaCl and the Na-like description")

	_, err = tab.ByName([]string{"odium"}, false)
	assert.True(t, errors.Is(err, models.ErrNotFound), "patterns are anchored at the start")
}

func TestByNameMultiplePatterns(t *testing.T) {
	tab := New(testRows())

	res, err := tab.ByName([]string{"K", "Na\\+", "K"}, false)
	require.NoError(t, err)
	ids := []int{}
	for _, ch := range res {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []int{5, 2, 5}, ids)

	_, err = tab.ByName([]string{"Xe"}, true)
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"Xe"}, nf.Patterns)

	_, err = tab.ByName([]string{"(unclosed"}, false)
	assert.True(t, errors.Is(err, models.ErrConfig))
}
