package metadata

import (
	"sort"
	"strings"
)

// Component identifies one unit of metadata in the org.
type Component struct {
	Type     string `json:"type"`
	FullName string `json:"fullName"`
}

// Key returns the stable identity of the component.
func (c Component) Key() string {
	return c.Type + ":" + c.FullName
}

func (c Component) String() string {
	return c.Key()
}

// ParseKey is the inverse of Component.Key.
func ParseKey(key string) (Component, bool) {
	typ, name, ok := strings.Cut(key, ":")
	if !ok || typ == "" || name == "" {
		return Component{}, false
	}
	return Component{Type: typ, FullName: name}, true
}

// ManifestType is one <types> entry of a retrieve manifest.
type ManifestType struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// ComponentSet is an ordered, de-duplicated collection of components that can
// be retrieved as a unit.
type ComponentSet struct {
	// APIVersion is the transport API version used for the retrieve call.
	APIVersion string

	// SourceAPIVersion is the manifest version, usually the project's sourceApiVersion.
	SourceAPIVersion string

	components []Component
	index      map[string]struct{}
}

// NewComponentSet creates a set containing the given components.
func NewComponentSet(components ...Component) *ComponentSet {
	cs := &ComponentSet{index: make(map[string]struct{})}
	for _, c := range components {
		cs.Add(c)
	}
	return cs
}

// Add inserts a component if it is not already present.
func (cs *ComponentSet) Add(c Component) {
	if cs.index == nil {
		cs.index = make(map[string]struct{})
	}
	if _, ok := cs.index[c.Key()]; ok {
		return
	}
	cs.index[c.Key()] = struct{}{}
	cs.components = append(cs.components, c)
}

// Size returns the number of components in the set.
func (cs *ComponentSet) Size() int {
	if cs == nil {
		return 0
	}
	return len(cs.components)
}

// ToSlice returns a copy of the components in insertion order.
func (cs *ComponentSet) ToSlice() []Component {
	if cs == nil {
		return nil
	}
	out := make([]Component, len(cs.components))
	copy(out, cs.components)
	return out
}

// Manifest groups the members by type, both sorted, for a retrieve request.
func (cs *ComponentSet) Manifest() []ManifestType {
	byType := make(map[string][]string)
	for _, c := range cs.ToSlice() {
		byType[c.Type] = append(byType[c.Type], c.FullName)
	}

	types := make([]ManifestType, 0, len(byType))
	for name, members := range byType {
		sort.Strings(members)
		types = append(types, ManifestType{Name: name, Members: members})
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].Name < types[j].Name
	})
	return types
}
