package sqlseed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var seedFilenamePattern = regexp.MustCompile(`^(\d+)[-_]?([A-Za-z0-9_-]*)(?:\.(up|down))?\.sql$`)

// SQLSeed is a seed backed by raw SQL files.
type SQLSeed struct {
	Version  string
	Name     string
	UpFile   string
	DownFile string
	UpSQL    string
	DownSQL  string
}

// Key is the registry name of the seed: <version>-<name>.
func (s *SQLSeed) Key() string {
	return s.Version + "-" + s.Name
}

// Seed converts the SQL files into a runnable seed. A seed without a down
// file is irreversible.
func (s *SQLSeed) Seed() *Seed {
	seed := &Seed{
		Name: s.Key(),
		Up: func(ctx context.Context, qi *QueryInterface) error {
			if _, err := qi.Exec(ctx, s.UpSQL); err != nil {
				return fmt.Errorf("apply %s: %w", s.UpFile, err)
			}
			return nil
		},
	}
	if s.DownSQL != "" {
		seed.Down = func(ctx context.Context, qi *QueryInterface) error {
			if _, err := qi.Exec(ctx, s.DownSQL); err != nil {
				return fmt.Errorf("revert %s: %w", s.DownFile, err)
			}
			return nil
		}
	}
	return seed
}

// LoadSQLSeeds reads seed files and pairs up/down halves by version and name.
func LoadSQLSeeds(files []string) ([]*SQLSeed, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no seed files provided")
	}
	byKey := make(map[string]*SQLSeed)
	for _, file := range files {
		version, name, direction, err := parseSeedFilename(file)
		if err != nil {
			return nil, err
		}
		body, err := readSeedSQL(file)
		if err != nil {
			return nil, err
		}
		key := version + "-" + name
		seed := byKey[key]
		if seed == nil {
			seed = &SQLSeed{Version: version, Name: name}
			byKey[key] = seed
		}
		switch direction {
		case "down":
			if seed.DownFile != "" {
				return nil, fmt.Errorf("duplicate down file for seed %s (%s and %s)", key, seed.DownFile, file)
			}
			seed.DownFile, seed.DownSQL = file, body
		default:
			if seed.UpFile != "" {
				return nil, fmt.Errorf("duplicate up file for seed %s (%s and %s)", key, seed.UpFile, file)
			}
			seed.UpFile, seed.UpSQL = file, body
		}
	}

	seeds := make([]*SQLSeed, 0, len(byKey))
	for key, seed := range byKey {
		if seed.UpFile == "" {
			return nil, fmt.Errorf("seed %s has a down file but no up file", key)
		}
		seeds = append(seeds, seed)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Key() < seeds[j].Key() })
	return seeds, nil
}

// LoadSQLSeedRegistry resolves inputs and registers every SQL seed found.
func LoadSQLSeedRegistry(inputs []string) (*Seeds, error) {
	files, err := ResolveFiles(inputs)
	if err != nil {
		return nil, err
	}
	sqlSeeds, err := LoadSQLSeeds(files)
	if err != nil {
		return nil, err
	}
	registry := NewSeeds()
	for _, s := range sqlSeeds {
		if err := registry.Register(s.Seed()); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func parseSeedFilename(path string) (version, name, direction string, err error) {
	base := filepath.Base(path)
	matches := seedFilenamePattern.FindStringSubmatch(base)
	if matches == nil {
		return "", "", "", fmt.Errorf("invalid seed filename %q (expected NN_description[.up|.down].sql)", base)
	}
	version = matches[1]
	name = strings.Trim(matches[2], "-_ ")
	if name == "" {
		name = "seed"
	}
	return version, name, matches[3], nil
}

func readSeedSQL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read seed %s: %w", path, err)
	}
	body := strings.TrimSpace(string(raw))
	if body == "" {
		return "", fmt.Errorf("seed %s is empty", path)
	}
	return body, nil
}

// ResolveFiles expands mixed directories/file inputs into a list of SQL files.
func ResolveFiles(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		if in == "" {
			continue
		}
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", in, err)
		}
		if info.IsDir() {
			dirFiles, err := CollectSQLFiles(in)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
			continue
		}
		if !strings.EqualFold(filepath.Ext(in), ".sql") {
			continue
		}
		files = append(files, in)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no SQL files resolved from %v", inputs)
	}
	return files, nil
}

// CollectSQLFiles walks a directory and returns all .sql files.
func CollectSQLFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk seed dir: %w", err)
	}
	return files, nil
}
