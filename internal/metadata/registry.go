package metadata

import (
	"path"
	"strings"
)

// Layout describes how a metadata type is stored in source format.
type Layout int

const (
	// LayoutFile stores dir/Name.suffix plus dir/Name.suffix-meta.xml.
	LayoutFile Layout = iota
	// LayoutMetaOnly stores a single dir/Name.suffix-meta.xml.
	LayoutMetaOnly
	// LayoutBundle stores every file under dir/Name/.
	LayoutBundle
)

// TypeInfo is the registry entry for one metadata type.
type TypeInfo struct {
	Name          string
	DirectoryName string
	Suffix        string
	Layout        Layout
}

// Registry maps metadata types to their source-format layout.
type Registry struct {
	byName map[string]TypeInfo
	byDir  map[string]TypeInfo
}

// DefaultTypes are the metadata types sourcesync understands out of the box.
var DefaultTypes = []TypeInfo{
	{Name: "ApexClass", DirectoryName: "classes", Suffix: "cls", Layout: LayoutFile},
	{Name: "ApexTrigger", DirectoryName: "triggers", Suffix: "trigger", Layout: LayoutFile},
	{Name: "ApexPage", DirectoryName: "pages", Suffix: "page", Layout: LayoutFile},
	{Name: "ApexComponent", DirectoryName: "components", Suffix: "component", Layout: LayoutFile},
	{Name: "StaticResource", DirectoryName: "staticresources", Suffix: "resource", Layout: LayoutFile},
	{Name: "CustomLabels", DirectoryName: "labels", Suffix: "labels", Layout: LayoutMetaOnly},
	{Name: "Layout", DirectoryName: "layouts", Suffix: "layout", Layout: LayoutMetaOnly},
	{Name: "PermissionSet", DirectoryName: "permissionsets", Suffix: "permissionset", Layout: LayoutMetaOnly},
	{Name: "Flow", DirectoryName: "flows", Suffix: "flow", Layout: LayoutMetaOnly},
	{Name: "CustomObject", DirectoryName: "objects", Suffix: "object", Layout: LayoutBundle},
	{Name: "LightningComponentBundle", DirectoryName: "lwc", Suffix: "", Layout: LayoutBundle},
	{Name: "AuraDefinitionBundle", DirectoryName: "aura", Suffix: "", Layout: LayoutBundle},
}

// NewRegistry builds a registry from the given type entries.
func NewRegistry(types ...TypeInfo) *Registry {
	r := &Registry{
		byName: make(map[string]TypeInfo, len(types)),
		byDir:  make(map[string]TypeInfo, len(types)),
	}
	for _, t := range types {
		r.byName[t.Name] = t
		r.byDir[t.DirectoryName] = t
	}
	return r
}

// DefaultRegistry returns a registry with DefaultTypes.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultTypes...)
}

// Type looks up a type by name.
func (r *Registry) Type(name string) (TypeInfo, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// ComponentForPath maps a slash-separated path to the component that owns it.
// The path may contain arbitrary leading directories (package dir, main/default);
// the first segment that names a registered type directory anchors the match.
func (r *Registry) ComponentForPath(p string) (Component, bool) {
	segments := strings.Split(path.Clean(p), "/")
	for i, seg := range segments {
		info, ok := r.byDir[seg]
		if !ok || i == len(segments)-1 {
			continue
		}
		rest := segments[i+1:]

		switch info.Layout {
		case LayoutBundle:
			if len(rest) < 2 {
				continue
			}
			return Component{Type: info.Name, FullName: rest[0]}, true
		default:
			if len(rest) != 1 {
				continue
			}
			name := trimSuffix(rest[0], info.Suffix)
			if name == rest[0] {
				continue
			}
			return Component{Type: info.Name, FullName: name}, true
		}
	}
	return Component{}, false
}

func trimSuffix(file, suffix string) string {
	for _, s := range []string{"." + suffix + "-meta.xml", "." + suffix} {
		if strings.HasSuffix(file, s) {
			return strings.TrimSuffix(file, s)
		}
	}
	return file
}
