package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyCategory   = errors.New("category has no words")
)

// Source supplies the word pool for a category.
type Source interface {
	Words(category string) ([]string, error)
	Categories() []string
}

// Lists is an in-memory Source keyed by category name. Lookups ignore case.
type Lists struct {
	mu    sync.RWMutex
	lists map[string][]string
	names map[string]string
}

func NewLists(lists map[string][]string) *Lists {
	l := &Lists{
		lists: make(map[string][]string),
		names: make(map[string]string),
	}

	for name, words := range lists {
		l.Add(name, words)
	}

	return l
}

// Add replaces the words of a category, dropping blanks and duplicates.
func (l *Lists) Add(category string, words []string) {
	clean := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))

	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		clean = append(clean, w)
	}

	key := strings.ToLower(category)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.lists[key] = clean
	l.names[key] = category
}

func (l *Lists) Words(category string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	words, ok := l.lists[strings.ToLower(category)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCategory, category)
	}

	return words, nil
}

func (l *Lists) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.names))
	for _, name := range l.names {
		out = append(out, name)
	}
	slices.Sort(out)

	return out
}

// LoadDir adds every *.txt file in dir as a category named after the file,
// one word per line. Lines starting with '#' are skipped.
func (l *Lists) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return 0, err
	}

	for _, path := range paths {
		words, err := readLines(path)
		if err != nil {
			return 0, err
		}

		l.Add(strings.TrimSuffix(filepath.Base(path), ".txt"), words)
	}

	return len(paths), nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open word list %s: %w", path, err)
	}
	defer file.Close()

	var words []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error while reading word list %s: %w", path, err)
	}

	return words, nil
}
