package storycfg

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed stories.yaml
var defaultFiles embed.FS

// StoryTypeCompetitive is the only story family with a mobile-create flow.
const StoryTypeCompetitive = "competitive-story"

var (
	ErrUnsupportedStoryType = errf("unsupported story type")
	ErrUnknownStory         = errf("no story config for story id")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// MobileCreate holds the opt-in paths used while collecting beta numbers.
type MobileCreate struct {
	AskBeta1OIP         int `yaml:"ask_beta_1_oip"`
	AskBeta2OIP         int `yaml:"ask_beta_2_oip"`
	InvalidMobileOIP    int `yaml:"invalid_mobile_oip"`
	NotEnoughPlayersOIP int `yaml:"not_enough_players_oip"`
}

// OptinFor maps a prompt name to its opt-in path.
func (m MobileCreate) OptinFor(prompt string) (int, bool) {
	switch prompt {
	case "ask_beta_1":
		return m.AskBeta1OIP, m.AskBeta1OIP != 0
	case "ask_beta_2":
		return m.AskBeta2OIP, m.AskBeta2OIP != 0
	case "invalid_mobile":
		return m.InvalidMobileOIP, m.InvalidMobileOIP != 0
	case "not_enough_players":
		return m.NotEnoughPlayersOIP, m.NotEnoughPlayersOIP != 0
	default:
		return 0, false
	}
}

// Story is one entry of a story family's configuration table.
type Story struct {
	Name         string       `yaml:"name"`
	MobileCreate MobileCreate `yaml:"mobile_create"`
}

// Catalog loads story tables from embedded defaults and an optional override
// directory. Keyed by story type, then story id.
type Catalog struct {
	mu       sync.RWMutex
	families map[string]map[string]*Story
}

// New loads the embedded default stories and then applies overrides from dir
// if provided.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{families: make(map[string]map[string]*Story)}

	raw, err := fs.ReadFile(defaultFiles, "stories.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded stories: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read story config dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) applyYAML(b []byte) error {
	var parsed map[string]map[string]*Story
	if err := yaml.Unmarshal(b, &parsed); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for family, stories := range parsed {
		if c.families[family] == nil {
			c.families[family] = make(map[string]*Story)
		}
		for id, s := range stories {
			c.families[family][id] = s // override
		}
	}
	return nil
}

// Resolve returns the story config for (storyType, storyID).
func (c *Catalog) Resolve(storyType, storyID string) (*Story, error) {
	storyType = strings.TrimSpace(storyType)
	if storyType != StoryTypeCompetitive {
		return nil, ErrUnsupportedStoryType
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	family, ok := c.families[storyType]
	if !ok {
		return nil, ErrUnsupportedStoryType
	}
	s, ok := family[strings.TrimSpace(storyID)]
	if !ok || s == nil {
		return nil, ErrUnknownStory
	}
	return s, nil
}
