package recommend

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(artists []Artist) []string {
	return lo.Map(artists, func(a Artist, _ int) string { return a.Name })
}

func TestSimilar(t *testing.T) {
	got := Similar([]string{"Oxxxymiron", "Face"})
	assert.Equal(t, []string{"Noize MC", "Соня Мармеладова", "ATL"}, names(got))
}

func TestSimilarExcludesSelected(t *testing.T) {
	got := Similar([]string{"Oxxxymiron", "Noize MC"})
	assert.Equal(t, []string{"Соня Мармеладова", "ATL"}, names(got))
}

func TestSimilarUnknown(t *testing.T) {
	assert.Empty(t, Similar([]string{"nobody"}))
	assert.Empty(t, Similar(nil))
}

func TestKnownIsUnique(t *testing.T) {
	known := names(Known())
	assert.Equal(t, len(lo.Uniq(known)), len(known))
	assert.Contains(t, known, "Jah Khalib")
	assert.Contains(t, known, "Каста")
}

func TestResolve(t *testing.T) {
	a, ok := Resolve("oxxymiron", 2)
	require.True(t, ok)
	assert.Equal(t, "Oxxxymiron", a.Name)

	a, ok = Resolve("  morgenshtern ", 0)
	require.True(t, ok)
	assert.Equal(t, "MORGENSHTERN", a.Name)

	_, ok = Resolve("completely different", 2)
	assert.False(t, ok)

	_, ok = Resolve("", 5)
	assert.False(t, ok)
}
