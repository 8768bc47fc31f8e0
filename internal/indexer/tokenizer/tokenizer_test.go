package tokenizer

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultExclusions(t *testing.T) ExclusionSet {
	t.Helper()
	set, err := LoadExclusions([]string{SourceEnglish, SourcePunctuation})
	require.NoError(t, err)
	return set
}

func TestTokenizeWhitespaceMode(t *testing.T) {
	tok := New(Options{}, defaultExclusions(t))

	assert.Equal(t, []string{"cat", "sat"}, tok.Tokenize("The cat sat"))
	assert.Equal(t, []string{"cat", "dog"}, tok.Tokenize("The cat and the dog"))
}

func TestTokenizeDropsPunctuationAndEmpty(t *testing.T) {
	tok := New(Options{}, defaultExclusions(t))

	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("   \t  "))
	assert.Equal(t, []string{"hello", "world"}, tok.Tokenize("hello -- world ... !!"))
}

func TestTokenizeKeepsRepeats(t *testing.T) {
	tok := New(Options{}, nil)
	assert.Equal(t, []string{"go", "go", "go"}, tok.Tokenize("Go go GO"))
}

func TestTokenizeWordsModeSplitsOnPunctuation(t *testing.T) {
	tok := New(Options{Mode: ModeWords}, defaultExclusions(t))
	assert.Equal(t, []string{"cat", "dog", "2024"}, tok.Tokenize("cat,dog; (2024)"))
}

func TestTokenizeUnicodeMode(t *testing.T) {
	tok := New(Options{Mode: ModeUnicode}, defaultExclusions(t))
	terms := tok.Tokenize("Café au lait, s'il vous plaît.")
	assert.Contains(t, terms, "café")
	assert.Contains(t, terms, "lait")
	assert.NotContains(t, terms, ",")
}

func TestTokenizeMinTermLength(t *testing.T) {
	tok := New(Options{MinTermLength: 3}, nil)
	assert.Equal(t, []string{"cat", "zebra"}, tok.Tokenize("a ox cat zebra"))
}

func TestTokenizeStemming(t *testing.T) {
	tok := New(Options{Stem: true}, defaultExclusions(t))
	terms := tok.Tokenize("running runs ran")
	assert.Equal(t, "run", terms[0])
	assert.Equal(t, "run", terms[1])
}

func TestTermsStopsEarly(t *testing.T) {
	tok := New(Options{}, nil)
	var got []string
	for term := range tok.Terms("one two three four") {
		got = append(got, term)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestTokenizerConcurrentUse(t *testing.T) {
	tok := New(Options{Stem: true}, defaultExclusions(t))
	want := tok.Tokenize("Distributed indexing of many documents")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if got := tok.Tokenize("Distributed indexing of many documents"); !slices.Equal(got, want) {
					t.Errorf("got %v, want %v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestLoadExclusionsBuiltins(t *testing.T) {
	set := defaultExclusions(t)
	for _, term := range []string{"the", "and", "a", ",", ".", "~"} {
		assert.True(t, set.Contains(term), term)
	}
	assert.False(t, set.Contains("cat"))
}

func TestLoadExclusionsNone(t *testing.T) {
	set, err := LoadExclusions([]string{SourceNone, ""})
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestLoadExclusionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("# custom list\nFoo\nbar\n"), 0644))

	set, err := LoadExclusions([]string{path})
	require.NoError(t, err)
	assert.True(t, set.Contains("foo"))
	assert.True(t, set.Contains("bar"))

	tok := New(Options{}, set)
	assert.Equal(t, []string{"baz"}, tok.Tokenize("foo BAR baz"))
}

func TestLoadExclusionsMissingFile(t *testing.T) {
	_, err := LoadExclusions([]string{filepath.Join(t.TempDir(), "absent.txt")})
	assert.Error(t, err)
}
