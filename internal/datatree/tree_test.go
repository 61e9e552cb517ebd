package datatree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/allanpk716/docx_filler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const resumeJSON = `{
  "name": "Ada Lovelace",
  "contact": {"email": "x@y.com", "phone": "+44 1234"},
  "years": 7,
  "rating": 4.5,
  "remote": true,
  "manager": null,
  "technical_skills": ["Go", "SQL", "Kubernetes"],
  "professional_experience": [
    {"company": "Acme", "title": "Engineer", "highlights": ["Built X", "Led Y"]}
  ]
}`

func TestResolve(t *testing.T) {
	tree, err := Parse([]byte(resumeJSON), FormatJSON)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		expected string
		found    bool
	}{
		{"nested mapping", "contact.email", "x@y.com", true},
		{"list index then key", "professional_experience.0.company", "Acme", true},
		{"nested list element", "professional_experience.0.highlights.1", "Led Y", true},
		{"integer", "years", "7", true},
		{"float", "rating", "4.5", true},
		{"bool", "remote", "true", true},
		{"list joins", "technical_skills", "Go, SQL, Kubernetes", true},
		{"missing key", "nonexistent.field", "", false},
		{"index out of range", "professional_experience.3.company", "", false},
		{"index into mapping", "contact.0", "", false},
		{"key into list", "technical_skills.first", "", false},
		{"key into scalar", "name.first", "", false},
		{"null is absent", "manager", "", false},
		{"negative is a key", "technical_skills.-1", "", false},
		{"empty path", "", "", false},
		{"empty segment", "contact..email", "", false},
		{"surrounding spaces", " contact.email ", "x@y.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tree.Resolve(tt.path)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, v.String())
			}
		})
	}
}

func TestResolve_DoesNotMutateTree(t *testing.T) {
	tree := MustNew(map[string]any{"a": map[string]any{"b": []any{"x"}}})
	before := tree.Root().String()
	tree.Resolve("a.b.0")
	tree.Resolve("a.c.d")
	assert.Equal(t, before, tree.Root().String())

	var nilTree *Tree
	_, ok := nilTree.Resolve("a")
	assert.False(t, ok)
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
name: Ada
contact:
  email: x@y.com
years: 7
started: 2020-01-02
projects:
  - name: Engine
    highlights: [fast, small]
1: numeric key
`)
	tree, err := Parse(data, FormatYAML)
	require.NoError(t, err)

	v, ok := tree.Resolve("projects.0.highlights")
	require.True(t, ok)
	assert.True(t, v.IsList())
	assert.Equal(t, []string{"fast", "small"}, v.Strings())

	v, _ = tree.Resolve("years")
	assert.Equal(t, int64(7), v.Interface())

	v, _ = tree.Resolve("started")
	assert.Equal(t, "2020-01-02", v.String())

	v, ok = tree.Root().Get("1")
	assert.True(t, ok)
	assert.Equal(t, "numeric key", v.String())
}

func TestParse_YAMLLargeIntegers(t *testing.T) {
	tree, err := Parse([]byte("big: 18446744073709551615\nmax: 9223372036854775807\n"), FormatYAML)
	require.NoError(t, err)

	v, ok := tree.Resolve("big")
	require.True(t, ok)
	assert.Equal(t, "18446744073709551615", v.String())

	v, _ = tree.Resolve("max")
	assert.Equal(t, int64(9223372036854775807), v.Interface())

	big, err := New(map[string]any{"n": uint64(1) << 63, "small": uint(3)})
	require.NoError(t, err)
	v, _ = big.Resolve("n")
	assert.Equal(t, "9223372036854775808", v.String())
	v, _ = big.Resolve("small")
	assert.Equal(t, int64(3), v.Interface())
}

func TestParse_AutoDetect(t *testing.T) {
	tree, err := Parse([]byte(`  {"a": 1}`), FormatAuto)
	require.NoError(t, err)
	v, _ := tree.Resolve("a")
	assert.Equal(t, int64(1), v.Interface())

	tree, err = Parse([]byte("a: b\n"), FormatAuto)
	require.NoError(t, err)
	v, _ = tree.Resolve("a")
	assert.Equal(t, "b", v.String())
}

func TestParse_Encodings(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"name": "Zoë"}`)...)
	tree, err := Parse(withBOM, FormatJSON)
	require.NoError(t, err)
	v, _ := tree.Resolve("name")
	assert.Equal(t, "Zoë", v.String())

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(`{"city": "Zürich"}`))
	require.NoError(t, err)
	tree, err = Parse(utf16, FormatJSON)
	require.NoError(t, err)
	v, _ = tree.Resolve("city")
	assert.Equal(t, "Zürich", v.String())

	// 分解形式统一为组合形式
	tree, err = Parse([]byte("{\"name\": \"Zoe\u0308\"}"), FormatJSON)
	require.NoError(t, err)
	v, _ = tree.Resolve("name")
	assert.Equal(t, "Zo\u00eb", v.String())
}

func TestParse_Malformed(t *testing.T) {
	for name, data := range map[string]string{
		"broken json": `{"a": `,
		"broken yaml": "a: [1, 2\n",
		"empty":       "   \n",
	} {
		t.Run(name, func(t *testing.T) {
			format := FormatAuto
			if name == "broken json" {
				format = FormatJSON
			}
			_, err := Parse([]byte(data), format)
			assert.ErrorIs(t, err, domain.ErrMalformedDataTree)
		})
	}

	_, err := New(map[string]any{"f": func() {}})
	assert.ErrorIs(t, err, domain.ErrMalformedDataTree)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: Ada\n"), 0644))

	tree, err := ParseFile(path)
	require.NoError(t, err)
	v, _ := tree.Resolve("name")
	assert.Equal(t, "Ada", v.String())

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	assert.Equal(t, FormatJSON, DetectFormat("x.JSON"))
	assert.Equal(t, FormatYAML, DetectFormat("x.yaml"))
	assert.Equal(t, FormatAuto, DetectFormat("x.txt"))
}

func TestValue(t *testing.T) {
	tree := MustNew(map[string]any{
		"list": []string{"a", "b"},
		"map":  map[string]any{"k": 1, "j": 2.5},
		"n":    3,
	})

	root := tree.Root()
	assert.True(t, root.IsMapping())
	assert.Equal(t, []string{"list", "map", "n"}, root.Keys())
	assert.Equal(t, 3, root.Len())

	list, _ := root.Get("list")
	assert.True(t, list.IsList())
	assert.False(t, list.IsScalar())
	item, ok := list.Index(1)
	assert.True(t, ok)
	assert.Equal(t, "b", item.String())
	_, ok = list.Index(2)
	assert.False(t, ok)

	m, _ := root.Get("map")
	assert.Equal(t, "map[j:2.5 k:1]", m.String())

	n, _ := root.Get("n")
	assert.True(t, n.IsScalar())
	assert.Nil(t, n.Items())
	assert.Nil(t, n.Keys())
	_, ok = n.Get("x")
	assert.False(t, ok)
}
