// Package localization provides the message catalogue used to render chat
// events as plain text. Catalogues are JSON files named after their
// language code (e.g. "en.json") mapping keys to fmt templates.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// DefaultLanguage is used when a key is missing from the requested language.
const DefaultLanguage = "en"

//go:embed locales/*.json
var embedded embed.FS

// Localizer manages the translations for the application.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// Default returns a Localizer over the catalogues compiled into the binary.
func Default() (*Localizer, error) {
	return NewLocalizer(embedded, "locales")
}

// NewLocalizer loads every "<lang>.json" file in dir of fsys.
func NewLocalizer(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}
		l.translations[lang] = translations
	}

	if _, ok := l.translations[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("localization directory has no %s.json", DefaultLanguage)
	}
	return l, nil
}

// GetString returns the localized string for a given key and language.
// If neither the language nor the default language has the key, the key
// itself is returned.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.translations[normalizeLang(lang)][key]; ok {
		return value
	}
	if value, ok := l.translations[DefaultLanguage][key]; ok {
		return value
	}
	return key
}

// Format looks up key and fills it in with args.
func (l *Localizer) Format(lang, key string, args ...any) string {
	return fmt.Sprintf(l.GetString(lang, key), args...)
}

// Languages returns the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}

// normalizeLang maps tags like "en-US" to "en".
func normalizeLang(lang string) string {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
