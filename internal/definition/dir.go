package definition

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
)

// LoadDir loads every definition document in dir: markdown files with a
// YAML frontmatter and JSON files. The markdown body becomes the
// description. Documents without an id take the file name.
func LoadDir(ctx context.Context, dir string) ([]*Definition, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numbers as json.Number across formats.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	typedRepo := loam.NewTypedRepository[Definition](repo)

	docs, err := typedRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	defs := make([]*Definition, 0, len(docs))
	for _, doc := range docs {
		def := doc.Data
		if def.ID == "" {
			def.ID = trimExtension(doc.ID)
		}
		if existing, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", def.ID, existing, doc.ID)
		}
		seen[def.ID] = doc.ID
		if def.Description == "" {
			// List serves metadata from the cache; the body needs a full read.
			full, err := typedRepo.Get(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("loam get %s: %w", doc.ID, err)
			}
			def.Description = strings.TrimSpace(full.Content)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.ID, err)
		}
		defs = append(defs, &def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func trimExtension(id string) string {
	if ext := filepath.Ext(id); ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
