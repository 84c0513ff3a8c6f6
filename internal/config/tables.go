package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/tbourn/anidl-backend/internal/textnorm"
)

// Tables is the static data file: the User-Agent pool and the ordered title
// substitution tables.
//
//	user_agents = ["Mozilla/5.0 ..."]
//
//	[[mapping]]
//	from = "Shippuuden"
//	to   = "Shp"
type Tables struct {
	UserAgents []string        `toml:"user_agents"`
	Mapping    []textnorm.Pair `toml:"mapping"`
	MappingRev []textnorm.Pair `toml:"mapping_rev"`
	SearchMap  []textnorm.Pair `toml:"search_map"`
}

// Replacer builds a textnorm.Replacer from the tables.
func (t Tables) Replacer() *textnorm.Replacer {
	return textnorm.NewReplacer(t.Mapping, t.MappingRev, t.SearchMap)
}

// LoadTables reads the TOML tables at path. An empty path or a missing file
// yields empty tables so built-in defaults apply.
func LoadTables(path string) (Tables, error) {
	var t Tables
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("read tables: %w", err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tables %s: %w", path, err)
	}
	return t, nil
}
