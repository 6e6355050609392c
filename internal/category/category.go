// Package category holds the naming tables used to normalize categories and
// channel names coming from untrusted lists.
package category

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncategorized is the fallback definition consulted when neither the
// channel nor its category has a definition of its own.
const Uncategorized = "未分类组"

// Definition describes one output category.
type Definition struct {
	Name       string   `yaml:"-"`
	Channels   []string `yaml:"channels"`
	Excludes   []string `yaml:"excludes"`
	ChangeLogo bool     `yaml:"change_logo"`
}

// Tables is the parsed category configuration. The zero value (and a nil
// *Tables) maps every name to itself and accepts everything.
type Tables struct {
	CategoryMap    map[string]string      `yaml:"category_map"`
	IgnoreCategory stringSet              `yaml:"ignore_category"`
	ChannelMap     map[string]*Definition `yaml:"channel_map"`
	ChannelIDMap   map[string]string      `yaml:"channel_id_map"`
	ChannelNameMap map[string]string      `yaml:"channel_name_map"`

	byChannel map[string]*Definition
}

var ErrMissingSection = errors.New("missing section")

var requiredSections = []string{
	"category_map",
	"ignore_category",
	"channel_map",
	"channel_id_map",
	"channel_name_map",
}

// Load reads the tables from a YAML file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category tables: %w", err)
	}
	return Parse(data)
}

// Parse decodes the tables from YAML. All five sections must be present.
func Parse(data []byte) (*Tables, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse category tables: %w", err)
	}
	var missing []string
	for _, k := range requiredSections {
		if _, ok := raw[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("parse category tables: %w: %s", ErrMissingSection, strings.Join(missing, ", "))
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse category tables: %w", err)
	}
	t.index()
	return &t, nil
}

func (t *Tables) index() {
	t.byChannel = make(map[string]*Definition)
	for name, def := range t.ChannelMap {
		if def == nil {
			def = &Definition{}
			t.ChannelMap[name] = def
		}
		def.Name = name
		for _, ch := range def.Channels {
			t.byChannel[ch] = def
		}
	}
}

// Category maps a category alias to its canonical name.
func (t *Tables) Category(name string) string {
	if t == nil {
		return name
	}
	if v, ok := t.CategoryMap[name]; ok {
		return v
	}
	return name
}

// Channel canonicalizes a channel name: the word "频道" is dropped, then
// the name alias table applies.
func (t *Tables) Channel(name string) string {
	name = strings.ReplaceAll(name, "频道", "")
	if t == nil {
		return name
	}
	if v, ok := t.ChannelNameMap[name]; ok {
		return v
	}
	return name
}

// ChannelID maps a channel id alias to its canonical id.
func (t *Tables) ChannelID(id string) string {
	if t == nil {
		return id
	}
	if v, ok := t.ChannelIDMap[id]; ok {
		return v
	}
	return id
}

// IsIgnore reports whether category is excluded from validation and import.
func (t *Tables) IsIgnore(category string) bool {
	if t == nil {
		return false
	}
	_, ok := t.IgnoreCategory[category]
	return ok
}

// Exists reports whether category has a definition. Without any
// definitions every category exists.
func (t *Tables) Exists(category string) bool {
	if t == nil || len(t.ChannelMap) == 0 {
		return true
	}
	_, ok := t.ChannelMap[category]
	return ok
}

// ChangeLogo reports whether logos of category are rewritten on import.
func (t *Tables) ChangeLogo(category string) bool {
	if t == nil {
		return false
	}
	def, ok := t.ChannelMap[category]
	return ok && def.ChangeLogo
}

// Lookup returns the definition a channel belongs to: the category that
// lists it explicitly, else the given category, else Uncategorized. Nil
// when none applies.
func (t *Tables) Lookup(channel, category string) *Definition {
	if t == nil {
		return nil
	}
	if def, ok := t.byChannel[channel]; ok {
		return def
	}
	if def, ok := t.ChannelMap[category]; ok {
		return def
	}
	return t.ChannelMap[Uncategorized]
}

// IsExclude reports whether def drops channel: it is listed in excludes, or
// excludes contains "*" and the channel is not listed in channels.
func IsExclude(def *Definition, channel string) bool {
	if def == nil {
		return false
	}
	return (contains(def.Excludes, "*") && !contains(def.Channels, channel)) || contains(def.Excludes, channel)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// cleanRe strips emoji, box drawing and CJK punctuation blocks that list
// authors decorate headers with.
var cleanRe = regexp.MustCompile(`[\x{1F000}-\x{1FFFF}\x{2500}-\x{2BEF}\x{2E00}-\x{2E7F}\x{3000}-\x{3300}\s]+`)

// Clean normalizes a raw category header.
func Clean(header string) string {
	return strings.TrimSpace(cleanRe.ReplaceAllString(header, " "))
}

// stringSet decodes from either a YAML sequence or a mapping (keys).
type stringSet map[string]struct{}

func (s *stringSet) UnmarshalYAML(n *yaml.Node) error {
	out := make(stringSet)
	switch n.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := n.Decode(&list); err != nil {
			return err
		}
		for _, v := range list {
			out[v] = struct{}{}
		}
	case yaml.MappingNode:
		var m map[string]any
		if err := n.Decode(&m); err != nil {
			return err
		}
		for k := range m {
			out[k] = struct{}{}
		}
	case yaml.ScalarNode:
		if n.Tag != "!!null" {
			return fmt.Errorf("ignore_category: unexpected scalar %q", n.Value)
		}
	default:
		return fmt.Errorf("ignore_category: unexpected node kind %d", n.Kind)
	}
	*s = out
	return nil
}
