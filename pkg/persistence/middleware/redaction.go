package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/ports"
)

// Mask replaces redacted block output.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks the result and printable state of every
// block whose id or type id matches one of the patterns before it is stored.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, snapshot *domain.InstanceSnapshot) error {
	// The caller keeps its snapshot untouched.
	cloned := snapshot.Clone()
	for i := range cloned.Blocks {
		b := &cloned.Blocks[i]
		if m.matches(b.ID) || m.matches(b.TypeID) {
			if b.Result != "" {
				b.Result = Mask
			}
			b.Printable = Mask
		}
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) matches(s string) bool {
	for _, p := range m.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func (m *redactionMiddleware) Load(ctx context.Context, instanceID string) (*domain.InstanceSnapshot, error) {
	return m.next.Load(ctx, instanceID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, instanceID string) error {
	return m.next.Delete(ctx, instanceID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
