package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

//go:embed locales/*.json
var localesFS embed.FS

// Translator - таблица переводов ключ -> строка для каждого языка
type Translator struct {
	defaultLanguage string
	languages       []string
	tables          map[string]map[string]string
}

// New загружает встроенные переводы для перечисленных языков.
// Язык по умолчанию обязан присутствовать среди них.
func New(defaultLanguage string, languages []string) (*Translator, error) {
	t := &Translator{
		defaultLanguage: defaultLanguage,
		tables:          make(map[string]map[string]string, len(languages)),
	}

	for _, lang := range languages {
		data, err := localesFS.ReadFile(path.Join("locales", lang+".json"))
		if err != nil {
			return nil, fmt.Errorf("no translations for language %q: %w", lang, err)
		}

		table := make(map[string]string)
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse translations %q: %w", lang, err)
		}

		t.tables[lang] = table
		t.languages = append(t.languages, lang)
	}

	if _, ok := t.tables[defaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %q is not loaded", defaultLanguage)
	}
	return t, nil
}

// Localize ищет ключ в языке пользователя, затем в языке по умолчанию.
// Неизвестный ключ возвращается как есть.
func (t *Translator) Localize(key, language string) string {
	if table, ok := t.tables[language]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	if s, ok := t.tables[t.defaultLanguage][key]; ok {
		return s
	}
	return key
}

func (t *Translator) Languages() []string {
	return append([]string(nil), t.languages...)
}

// Supported нормализует код языка; пустая строка, если язык не поддерживается
func (t *Translator) Supported(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if _, ok := t.tables[language]; ok {
		return language
	}
	return ""
}
