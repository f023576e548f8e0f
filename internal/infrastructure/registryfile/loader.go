package registryfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"practice-governance/internal/domain"
)

// File is the on-disk shape of a registry table.
//
//	roles:
//	  PARTNER: [create_draft, approve_document]
//	surfaces:
//	  dashboard: []
//	  vault: [view_vault]
type File struct {
	Roles    map[string][]string `yaml:"roles"`
	Surfaces map[string][]string `yaml:"surfaces"`
}

func Load(path string) (*domain.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a registry table. Deprecated role names are folded into their
// canonical role; unknown role names and unknown keys are rejected.
func Parse(raw []byte) (*domain.Registry, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: registry: %v", domain.ErrInvalidInput, err)
	}
	roles := make(map[domain.Role][]domain.Permission, len(f.Roles))
	for name, perms := range f.Roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: registry: unknown role %q", domain.ErrInvalidInput, name)
		}
		roles[role] = append(roles[role], toPermissions(perms)...)
	}
	surfaces := make(map[domain.Surface][]domain.Permission, len(f.Surfaces))
	for name, perms := range f.Surfaces {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: registry: empty surface name", domain.ErrInvalidInput)
		}
		surfaces[domain.Surface(name)] = toPermissions(perms)
	}
	return domain.NewRegistry(roles, surfaces), nil
}

func toPermissions(raw []string) []domain.Permission {
	out := make([]domain.Permission, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, domain.Permission(p))
		}
	}
	return out
}
