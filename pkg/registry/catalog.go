package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
	"golang.org/x/mod/semver"
)

// Catalog resolves block type ids across several registries.
// It is built once at process start and is read-only afterwards.
type Catalog struct {
	hostVersion string
	registries  []*Registry
	byType      map[string]*Registry
	order       []string
}

// NewCatalog gates every registry against hostVersion and indexes its type ids.
// When registries advertise the same type id, the first one wins.
// An empty hostVersion disables the compatibility check.
func NewCatalog(hostVersion string, registries ...*Registry) (*Catalog, error) {
	c := &Catalog{
		hostVersion: hostVersion,
		byType:      make(map[string]*Registry),
	}
	for _, r := range registries {
		if r == nil {
			continue
		}
		if hostVersion != "" {
			if err := CheckCompatible(hostVersion, r.ExpectedEngineVersion()); err != nil {
				return nil, err
			}
		}
		c.registries = append(c.registries, r)
		for _, id := range r.SupportedBlockTypeIDs() {
			if _, taken := c.byType[id]; taken {
				continue
			}
			c.byType[id] = r
			c.order = append(c.order, id)
		}
	}
	return c, nil
}

// HostVersion returns the version registries were gated against.
func (c *Catalog) HostVersion() string { return c.hostVersion }

// Registries returns the registries in query order.
func (c *Catalog) Registries() []*Registry { return slices.Clone(c.registries) }

// SupportedBlockTypeIDs returns every known type id, in discovery order.
func (c *Catalog) SupportedBlockTypeIDs() []string { return slices.Clone(c.order) }

// RegistryFor returns the registry that builds typeID.
func (c *Catalog) RegistryFor(typeID string) (*Registry, error) {
	r, ok := c.byType[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: block type id %s not found in any registry", domain.ErrUnsupportedType, typeID)
	}
	return r, nil
}

// Build constructs a block with the registry that owns typeID.
func (c *Catalog) Build(typeID string, args ...Arg) (block.Block, error) {
	r, err := c.RegistryFor(typeID)
	if err != nil {
		return nil, err
	}
	return r.Build(typeID, args...)
}

// BuildNamed constructs a block from named arguments with the registry that owns typeID.
func (c *Catalog) BuildNamed(typeID string, named map[string]any) (block.Block, error) {
	r, err := c.RegistryFor(typeID)
	if err != nil {
		return nil, err
	}
	return r.BuildNamed(typeID, named)
}

// CheckCompatible reports whether a host at hostVersion can load a registry
// built against expected: same major version and host not older.
func CheckCompatible(hostVersion, expected string) error {
	host, want := canonical(hostVersion), canonical(expected)
	if !semver.IsValid(host) {
		return fmt.Errorf("%w: invalid host version %q", domain.ErrIncompatibleEngine, hostVersion)
	}
	if !semver.IsValid(want) {
		return fmt.Errorf("%w: invalid expected version %q", domain.ErrIncompatibleEngine, expected)
	}
	if semver.Major(host) != semver.Major(want) || semver.Compare(host, want) < 0 {
		return fmt.Errorf("%w: host %s, registry expects %s", domain.ErrIncompatibleEngine, hostVersion, expected)
	}
	return nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
