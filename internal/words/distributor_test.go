package words

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDistributor(lists map[string][]string) *Distributor {
	return NewDistributor(NewLists(lists), WithRand(rand.New(rand.NewPCG(3, 5))))
}

func TestDrawUniqueNeverRepeatsWithinPool(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	d := newTestDistributor(map[string][]string{"letters": pool})

	seen := make(map[string]bool)
	for range pool {
		w, err := d.DrawUnique("letters")
		require.NoError(t, err)
		assert.False(t, seen[w], "word %q issued twice", w)
		seen[w] = true
	}

	assert.Len(t, seen, len(pool))
	assert.Zero(t, d.Exhaustions())
}

// A pool smaller than the number of draws recycles instead of failing. The
// repeat that follows is accepted behavior.
func TestDrawUniqueExhaustionRecycles(t *testing.T) {
	d := newTestDistributor(map[string][]string{"tiny": {"x", "y"}})

	first, err := d.DrawUnique("tiny")
	require.NoError(t, err)
	second, err := d.DrawUnique("tiny")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	third, err := d.DrawUnique("tiny")
	require.NoError(t, err)
	assert.Contains(t, []string{"x", "y"}, third)
	assert.Equal(t, 1, d.Exhaustions())
}

func TestResetAllowsReuse(t *testing.T) {
	d := newTestDistributor(map[string][]string{"one": {"solo"}})

	w, err := d.DrawUnique("one")
	require.NoError(t, err)
	assert.Equal(t, "solo", w)

	d.Reset()

	w, err = d.DrawUnique("one")
	require.NoError(t, err)
	assert.Equal(t, "solo", w)
	assert.Zero(t, d.Exhaustions())
}

func TestDrawPairDistinct(t *testing.T) {
	d := newTestDistributor(map[string][]string{"animals": {"cat", "dog", "cow"}})

	for range 20 {
		common, odd, err := d.DrawPair("animals")
		require.NoError(t, err)
		assert.NotEqual(t, common, odd)
		d.Reset()
	}

	single := newTestDistributor(map[string][]string{"one": {"solo"}})
	common, odd, err := single.DrawPair("one")
	require.NoError(t, err)
	assert.Equal(t, "solo", common)
	assert.Equal(t, "solo", odd)
}

func TestDrawSet(t *testing.T) {
	d := newTestDistributor(map[string][]string{"food": {"a", "b", "c", "d", "e", "f"}})

	set, err := d.DrawSet("food", 5)
	require.NoError(t, err)
	require.Len(t, set, 5)

	seen := make(map[string]bool)
	for _, w := range set {
		assert.False(t, seen[w])
		seen[w] = true
	}
}

func TestUnknownAndEmptyCategories(t *testing.T) {
	d := newTestDistributor(map[string][]string{"blank": {"  ", ""}})

	_, err := d.DrawUnique("nope")
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = d.DrawUnique("blank")
	assert.ErrorIs(t, err, ErrEmptyCategory)
}

func TestConcurrentDrawsDoNotDoubleIssue(t *testing.T) {
	pool := make([]string, 200)
	for i := range pool {
		pool[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
	}
	d := NewDistributor(NewLists(map[string][]string{"big": pool}))

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				w, err := d.DrawUnique("big")
				assert.NoError(t, err)
				mu.Lock()
				seen[w]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 200)
	for w, n := range seen {
		assert.Equal(t, 1, n, "word %q issued %d times", w, n)
	}
}

func TestListsCaseInsensitive(t *testing.T) {
	l := NewLists(map[string][]string{"Animals": {"Otter", "Otter", "Seal"}})

	got, err := l.Words("animals")
	require.NoError(t, err)
	assert.Equal(t, []string{"Otter", "Seal"}, got)
	assert.Equal(t, []string{"Animals"}, l.Categories())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Office.txt"), []byte("# office things\nstapler\n\nprinter\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	l := Builtin()
	n, err := l.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := l.Words("office")
	require.NoError(t, err)
	assert.Equal(t, []string{"stapler", "printer"}, got)
	assert.Contains(t, l.Categories(), "Animals")
}
