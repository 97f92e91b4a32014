package metadata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/sourcesync/internal/fsops"
)

func TestComponentSet(t *testing.T) {
	cs := NewComponentSet(
		Component{Type: "ApexClass", FullName: "Zeta"},
		Component{Type: "ApexClass", FullName: "Alpha"},
		Component{Type: "CustomObject", FullName: "Account"},
		Component{Type: "ApexClass", FullName: "Zeta"},
	)

	assert.Equal(t, 3, cs.Size())

	want := []ManifestType{
		{Name: "ApexClass", Members: []string{"Alpha", "Zeta"}},
		{Name: "CustomObject", Members: []string{"Account"}},
	}
	if diff := cmp.Diff(want, cs.Manifest()); diff != "" {
		t.Errorf("Manifest() mismatch (-want +got):\n%s", diff)
	}

	var nilSet *ComponentSet
	assert.Equal(t, 0, nilSet.Size())
	assert.Nil(t, nilSet.ToSlice())
}

func TestParseKey(t *testing.T) {
	c, ok := ParseKey("ApexClass:Foo")
	require.True(t, ok)
	assert.Equal(t, Component{Type: "ApexClass", FullName: "Foo"}, c)

	_, ok = ParseKey("nocolon")
	assert.False(t, ok)
}

func TestRegistry_ComponentForPath(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		path   string
		want   Component
		wantOK bool
	}{
		{"force-app/main/default/classes/Foo.cls", Component{"ApexClass", "Foo"}, true},
		{"force-app/main/default/classes/Foo.cls-meta.xml", Component{"ApexClass", "Foo"}, true},
		{"force-app/layouts/Account-Account Layout.layout-meta.xml", Component{"Layout", "Account-Account Layout"}, true},
		{"force-app/lwc/cmpA/cmpA.js", Component{"LightningComponentBundle", "cmpA"}, true},
		{"force-app/lwc/cmpA/__tests__/cmpA.test.js", Component{"LightningComponentBundle", "cmpA"}, true},
		{"force-app/objects/Account/fields/Foo__c.field-meta.xml", Component{"CustomObject", "Account"}, true},
		{"force-app/classes/readme.txt", Component{}, false},
		{"force-app/unknown/Foo.cls", Component{}, false},
		{"force-app/classes", Component{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := reg.ComponentForPath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Index(t *testing.T) {
	fs := fsops.NewMemFS()
	files := []string{
		"force-app/main/default/classes/Foo.cls",
		"force-app/main/default/classes/Foo.cls-meta.xml",
		"force-app/main/default/lwc/cmpA/cmpA.js",
		"force-app/main/default/lwc/cmpA/cmpA.html",
		"other/lwc/cmpB/cmpB.js",
		"force-app/main/default/notes.md",
		"outside/classes/Bar.cls",
	}
	for _, f := range files {
		require.NoError(t, fs.WriteFile(f, []byte(f), 0644))
	}

	resolver := NewResolver(fs, DefaultRegistry(), []string{"force-app", "other"})
	index, err := resolver.Index()
	require.NoError(t, err)

	want := map[string][]string{
		"ApexClass:Foo": {
			"force-app/main/default/classes/Foo.cls",
			"force-app/main/default/classes/Foo.cls-meta.xml",
		},
		"LightningComponentBundle:cmpA": {
			"force-app/main/default/lwc/cmpA/cmpA.html",
			"force-app/main/default/lwc/cmpA/cmpA.js",
		},
		"LightningComponentBundle:cmpB": {"other/lwc/cmpB/cmpB.js"},
	}
	if diff := cmp.Diff(want, index); diff != "" {
		t.Errorf("Index() mismatch (-want +got):\n%s", diff)
	}
}
