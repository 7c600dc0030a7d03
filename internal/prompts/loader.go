// Package prompts holds the externalized text of the assistant: per-locale
// questions, keywords and messages, the judge templates, and the form layout.
// Files are flat JSON string tables embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var tableFiles embed.FS

// Well-known table files.
const (
	LayoutFile = "layout.json"
	JudgeFile  = "judge.json"
)

// LocaleFile returns the table file for a language code, e.g. "en.json".
func LocaleFile(lang string) string {
	return lang + ".json"
}

// Table is one parsed prompt file.
type Table map[string]string

var (
	cache   = make(map[string]Table)
	cacheMu sync.RWMutex
)

// Load returns the parsed table for filename, caching it after the first read.
func Load(filename string) (Table, error) {
	cacheMu.RLock()
	if t, ok := cache[filename]; ok {
		cacheMu.RUnlock()
		return t, nil
	}
	cacheMu.RUnlock()

	data, err := tableFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = t
	cacheMu.Unlock()

	return t, nil
}

// Get retrieves a single entry by filename and key.
func Get(filename, key string) (string, error) {
	t, err := Load(filename)
	if err != nil {
		return "", err
	}
	return t.Get(key, filename)
}

// MustGet is Get for entries that must exist at initialization time.
func MustGet(filename, key string) string {
	v, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return v
}

// Get returns the value for key. source names the table in the error.
func (t Table) Get(key, source string) (string, error) {
	v, ok := t[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, source)
	}
	return v, nil
}

// List returns the value for key split on commas, with blanks dropped.
func (t Table) List(key, source string) ([]string, error) {
	v, err := t.Get(key, source)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("prompt key %q in %s is an empty list", key, source)
	}
	return out, nil
}

// WithPrefix returns the entries whose key starts with prefix, keyed by the
// remainder of the key.
func (t Table) WithPrefix(prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range t {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			out[rest] = v
		}
	}
	return out
}

// Keys returns the table's keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format replaces placeholders of the form {{.Key}} with values from data.
// Unknown placeholders are left in place.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{."+key+"}}", value)
	}
	return result
}

// ClearCache drops every parsed table.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]Table)
	cacheMu.Unlock()
}
