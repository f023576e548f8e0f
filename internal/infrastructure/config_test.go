package infrastructure_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"practice-governance/internal/domain"
	"practice-governance/internal/infrastructure/registryfile"
)

const registryPath = "config/registry.yaml"

func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	root, err := projectRoot()
	if err != nil {
		t.Fatalf("locate project root failed: %v", err)
	}
	contents, err := os.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		t.Fatalf("read %s failed: %v", relPath, err)
	}
	return contents
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

func parseYAML(t *testing.T, relPath string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal(readFixture(t, relPath), &doc); err != nil {
		t.Fatalf("unmarshal %s failed: %v", relPath, err)
	}
	if len(doc.Content) == 0 {
		t.Fatalf("%s has empty yaml document", relPath)
	}
	return doc.Content[0]
}

func mappingValue(t *testing.T, node *yaml.Node, key string) *yaml.Node {
	t.Helper()
	if node == nil || node.Kind != yaml.MappingNode {
		t.Fatalf("expected mapping node while reading key %q", key)
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	t.Fatalf("missing key %q", key)
	return nil
}

func mappingKeys(node *yaml.Node) []string {
	var keys []string
	for i := 0; i < len(node.Content)-1; i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func TestRegistryFileNamesEveryRoleAndSurface(t *testing.T) {
	root := parseYAML(t, registryPath)

	roles := mappingKeys(mappingValue(t, root, "roles"))
	for _, role := range domain.Roles {
		assert.Contains(t, roles, string(role))
	}

	surfaces := mappingKeys(mappingValue(t, root, "surfaces"))
	for surface := range domain.DefaultSurfaceTable() {
		assert.Contains(t, surfaces, string(surface))
	}
}

func TestRegistryFileMatchesCompiledDefaults(t *testing.T) {
	loaded, err := registryfile.Parse(readFixture(t, registryPath))
	require.NoError(t, err)
	defaults := domain.DefaultRegistry()

	for _, role := range domain.Roles {
		assert.Equal(t, defaults.PermissionsOf(role), loaded.PermissionsOf(role), "role %s", role)
	}
	require.Equal(t, defaults.Surfaces(), loaded.Surfaces())
	for _, surface := range defaults.Surfaces() {
		assert.ElementsMatch(t, defaults.RequiredPermissionsOf(surface), loaded.RequiredPermissionsOf(surface), "surface %s", surface)
	}
}
