// Package personality хранит тексты бота («персонажности»).
// Каждая персонажность — TOML-файл со слотами вида errors.no_mentions,
// значения — шаблоны text/template. Код бота никогда не собирает
// пользовательские строки сам: он выбирает слот и передаёт параметры.
package personality

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
)

//go:embed personalities/*.toml
var builtin embed.FS

// DefaultName — персонажность по умолчанию.
const DefaultName = "crab"

// fallbackText показывается, если слот не найден ни в одной персонажности.
const fallbackText = "Something went wrong, buddy! 🦀"

// Params — параметры для подстановки в шаблон.
type Params map[string]any

// Renderer выбирает текст по слоту. Его принимают все обработчики.
type Renderer interface {
	Render(personality, slot string, params Params) string
}

// Set — одна загруженная персонажность.
type Set struct {
	Name        string
	Description string
	templates   map[string]*template.Template
}

// Catalog — все персонажности, доступные боту.
type Catalog struct {
	sets        map[string]*Set
	defaultName string
}

// LoadBuiltin загружает встроенные персонажности.
func LoadBuiltin(defaultName string) (*Catalog, error) {
	c, err := Load(builtin, "personalities", defaultName)
	if err != nil {
		return nil, err
	}
	return c, c.checkDefault()
}

// LoadWithDir загружает встроенные персонажности и добавляет
// (или переопределяет) их файлами из dir.
func LoadWithDir(dir, defaultName string) (*Catalog, error) {
	c, err := LoadBuiltin(defaultName)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return c, nil
	}
	extra, err := Load(os.DirFS(dir), ".", defaultName)
	if err != nil {
		return nil, err
	}
	for name, set := range extra.sets {
		c.sets[name] = set
	}
	return c, c.checkDefault()
}

func (c *Catalog) checkDefault() error {
	if !c.Has(c.defaultName) {
		return fmt.Errorf("персонажность по умолчанию %q не найдена", c.defaultName)
	}
	return nil
}

// Load читает все *.toml из каталога dir файловой системы fsys.
func Load(fsys fs.FS, dir, defaultName string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога персонажностей: %w", err)
	}

	c := &Catalog{sets: make(map[string]*Set), defaultName: defaultName}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("чтение %s: %w", e.Name(), err)
		}
		set, err := parseSet(strings.TrimSuffix(e.Name(), ".toml"), data)
		if err != nil {
			return nil, err
		}
		c.sets[set.Name] = set
	}

	if c.defaultName == "" {
		c.defaultName = DefaultName
	}
	return c, nil
}

func parseSet(name string, data []byte) (*Set, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("разбор персонажности %s: %w", name, err)
	}

	set := &Set{Name: name, templates: make(map[string]*template.Template)}
	flat := make(map[string]string)
	flatten("", raw, flat)

	if d, ok := flat["description"]; ok {
		set.Description = d
	}
	if n, ok := flat["name"]; ok && n != "" {
		set.Name = n
	}
	for slot, text := range flat {
		tmpl, err := template.New(slot).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("шаблон %s.%s: %w", name, slot, err)
		}
		set.templates[slot] = tmpl
	}
	return set, nil
}

// flatten превращает вложенные таблицы TOML в ключи "errors.no_mentions".
func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Render возвращает текст слота. Если персонажности нет — берётся
// персонажность по умолчанию; если нет слота — слот из неё же.
func (c *Catalog) Render(personality, slot string, params Params) string {
	for _, name := range []string{personality, c.defaultName} {
		set, ok := c.sets[name]
		if !ok {
			continue
		}
		tmpl, ok := set.templates[slot]
		if !ok {
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, map[string]any(params)); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"personality": name,
				"slot":        slot,
			}).Error("Ошибка рендера шаблона")
			continue
		}
		return buf.String()
	}
	log.WithFields(log.Fields{"personality": personality, "slot": slot}).Warn("Слот не найден")
	return fallbackText
}

// Has проверяет, есть ли персонажность с таким именем.
func (c *Catalog) Has(name string) bool {
	_, ok := c.sets[name]
	return ok
}

// Names возвращает имена персонажностей по алфавиту.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sets))
	for name := range c.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Description возвращает описание персонажности для диалога настроек.
func (c *Catalog) Description(name string) string {
	if set, ok := c.sets[name]; ok && set.Description != "" {
		return set.Description
	}
	return "No description available"
}

// Default — имя персонажности по умолчанию.
func (c *Catalog) Default() string {
	return c.defaultName
}
