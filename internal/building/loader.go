// Package building loads static building models from YAML or JSON files.
package building

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matijazezelj/wayfind/internal/navigation"
	"github.com/matijazezelj/wayfind/pkg/models"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultSource is the import source name of the embedded building.
const DefaultSource = "embedded:default"

// File is a decoded building model.
type File struct {
	Name     string
	Nodes    []models.Node
	Edges    []models.Edge
	Warnings []string
}

// Build validates the model and returns the routable building.
func (f *File) Build() (*navigation.Building, error) {
	return navigation.NewBuilding(f.Nodes, f.Edges)
}

// buildingFile is the on-disk layout. JSON files decode through the same
// path since JSON is valid YAML.
type buildingFile struct {
	Name  string     `yaml:"name"`
	Nodes []fileNode `yaml:"nodes"`
	Edges []fileEdge `yaml:"edges"`
}

// fileNode leaves accessible optional: a place is usable as a waypoint
// unless the file says otherwise. Stairs landings count too, since they
// are reached over level corridors.
type fileNode struct {
	ID         string  `yaml:"id"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Type       string  `yaml:"type"`
	Accessible *bool   `yaml:"accessible"`
	Label      string  `yaml:"label"`
}

// fileEdge leaves accessible optional: edges are accessible unless they
// say otherwise, and stairs never are.
type fileEdge struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	Type       string `yaml:"type"`
	Accessible *bool  `yaml:"accessible"`
}

// Default returns the embedded reference building.
func Default() *File {
	f, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded building is invalid: %v", err))
	}
	return f
}

// Load reads a building file from path.
func Load(path string) (*File, error) {
	resolved, err := SafeResolvePath(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported building file %q: want .yaml, .yml or .json", filepath.Base(resolved))
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading building file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(resolved), err)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(resolved), filepath.Ext(resolved))
	}
	return f, nil
}

// Parse decodes a building document. Structural problems such as unknown
// node references are reported by Build, not here; Parse only rejects
// documents it cannot read and collects warnings for suspicious content.
func Parse(data []byte) (*File, error) {
	var raw buildingFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding building: %w", err)
	}
	if len(raw.Nodes) == 0 {
		return nil, fmt.Errorf("building has no nodes")
	}

	f := &File{Name: raw.Name}
	for _, n := range raw.Nodes {
		node := models.Node{
			ID:         strings.TrimSpace(n.ID),
			X:          n.X,
			Y:          n.Y,
			Type:       models.NodeType(strings.ToLower(n.Type)),
			Accessible: true,
			Label:      n.Label,
		}
		if n.Accessible != nil {
			node.Accessible = *n.Accessible
		}
		f.Nodes = append(f.Nodes, node)
	}

	for _, e := range raw.Edges {
		edge := models.Edge{
			From:       strings.TrimSpace(e.From),
			To:         strings.TrimSpace(e.To),
			Type:       models.EdgeType(strings.ToLower(e.Type)),
			Accessible: true,
		}
		if edge.Type == "" {
			edge.Type = models.EdgeCorridor
		}
		if !edge.Type.Valid() {
			f.Warnings = append(f.Warnings, fmt.Sprintf("edge %s has unknown type %q", edge.Key(), e.Type))
		}
		if e.Accessible != nil {
			edge.Accessible = *e.Accessible
		}
		if edge.Type == models.EdgeStairs {
			if e.Accessible != nil && *e.Accessible {
				f.Warnings = append(f.Warnings, fmt.Sprintf("stairs edge %s marked accessible; treating as not accessible", edge.Key()))
			}
			edge.Accessible = false
		}
		f.Edges = append(f.Edges, edge)
	}

	f.Warnings = append(f.Warnings, isolatedNodes(f)...)
	if countType(f.Nodes, models.NodeExit) == 0 {
		f.Warnings = append(f.Warnings, "building has no exit nodes")
	}
	return f, nil
}

// SafeResolvePath resolves a user-provided path to an absolute path with
// symlinks and ".." components evaluated.
func SafeResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("evaluating symlinks: %w", err)
	}
	return resolved, nil
}

func isolatedNodes(f *File) []string {
	linked := make(map[string]bool, len(f.Nodes))
	for _, e := range f.Edges {
		linked[e.From] = true
		linked[e.To] = true
	}
	var out []string
	for _, n := range f.Nodes {
		if !linked[n.ID] {
			out = append(out, fmt.Sprintf("node %q has no connections", n.ID))
		}
	}
	sort.Strings(out)
	return out
}

func countType(nodes []models.Node, t models.NodeType) int {
	c := 0
	for _, n := range nodes {
		if n.Type == t {
			c++
		}
	}
	return c
}
