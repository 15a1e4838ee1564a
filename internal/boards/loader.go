package boards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KevinKickass/ioplusd/internal/types"
	"gopkg.in/yaml.v3"
)

var definitionExtensions = []string{".yaml", ".yml", ".json"}

// Loader reads board definition files from a list of directories.
type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewLoader(searchPaths []string, validator *Validator) *Loader {
	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}
}

// Load reads a single definition by file name, with or without extension.
func (l *Loader) Load(name string) (*types.BoardDefinition, error) {
	// Cache-Check
	if cached, ok := l.cache.Load(name); ok {
		def := *cached.(*types.BoardDefinition)
		return &def, nil
	}

	var data []byte
	var foundPath string

	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = candidates[:0]
		for _, ext := range definitionExtensions {
			candidates = append(candidates, name+ext)
		}
	}

search:
	for _, searchPath := range l.searchPaths {
		for _, c := range candidates {
			fullPath := filepath.Join(searchPath, c)
			b, err := os.ReadFile(fullPath)
			if err == nil {
				data, foundPath = b, fullPath
				break search
			}
		}
	}

	if data == nil {
		return nil, fmt.Errorf("board definition not found: %s (searched in: %v)", name, l.searchPaths)
	}

	def, err := l.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", foundPath, err)
	}

	l.cache.Store(name, def)
	out := *def
	return &out, nil
}

// LoadAll reads every definition file found in the search paths, ordered by
// stack level. Missing directories are skipped.
func (l *Loader) LoadAll() ([]types.BoardDefinition, error) {
	var defs []types.BoardDefinition
	seen := make(map[string]bool)

	for _, searchPath := range l.searchPaths {
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", searchPath, err)
		}
		for _, e := range entries {
			if e.IsDir() || !isDefinitionFile(e.Name()) || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			def, err := l.Load(e.Name())
			if err != nil {
				return nil, err
			}
			defs = append(defs, *def)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Stack < defs[j].Stack })
	return defs, nil
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}

// decode accepts YAML or JSON, validates it against the board schema and
// fills the definition. enabled defaults to true.
func (l *Loader) decode(data []byte) (*types.BoardDefinition, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse board definition: %w", err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize board definition: %w", err)
	}

	if err := l.validator.Validate(normalized); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	def := types.BoardDefinition{Enabled: true}
	if err := json.Unmarshal(normalized, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board definition: %w", err)
	}
	return &def, nil
}

func isDefinitionFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range definitionExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
