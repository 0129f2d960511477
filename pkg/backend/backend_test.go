package backend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/fileractions/internal/record"
	"github.com/mesh-intelligence/fileractions/internal/schema"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{name: "kvstore", backend: types.BackendKVStore, want: types.BackendKVStore},
		{name: "desktop", backend: types.BackendDesktop, want: types.BackendDesktop},
		{name: "dump", backend: types.BackendDump, want: types.BackendDump},
		{name: "schema", backend: types.BackendSchema, want: types.BackendSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends, err := New(types.Config{Backend: tt.backend, DataDir: t.TempDir()}, nil)
			require.NoError(t, err)
			require.Len(t, backends, 1)
			b := backends[0]
			assert.Equal(t, tt.want, b.Name())
			require.NoError(t, b.Open())
			defer b.Close()
			assert.True(t, b.Writable())
		})
	}
}

func TestNewWithSystemDirs(t *testing.T) {
	sys := filepath.Join(t.TempDir(), "system")
	backends, err := New(types.Config{
		Backend:     types.BackendKVStore,
		DataDir:     t.TempDir(),
		DesktopDirs: []string{sys},
	}, nil)
	require.NoError(t, err)
	require.Len(t, backends, 2)
	assert.Equal(t, types.BackendKVStore, backends[0].Name())
	assert.Equal(t, SystemDesktopName, backends[1].Name())
	require.NoError(t, backends[1].Open())
	defer backends[1].Close()
	assert.False(t, backends[1].Writable())
	assert.NoDirExists(t, sys)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(types.Config{Backend: "gconf"}, nil)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	_, err = New(types.Config{}, nil)
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}

func roundTripItems() []*types.Item {
	empty := schema.NewItem("empty-lists", types.KindAction)
	empty.Label = "Empty lists"
	p := empty.Profiles[0]
	p.Path = "/bin/true"
	p.Basenames, p.Mimetypes, p.Schemes, p.Folders = []string{}, []string{}, []string{}, []string{}

	single := schema.NewItem("single", types.KindAction)
	single.Label, single.Tooltip, single.Icon = "Single", "One of each", "drive-optical"
	p = single.Profiles[0]
	p.Path = "/usr/bin/mount-iso"
	p.Basenames = []string{"*.iso"}
	p.Mimetypes = []string{"application/x-iso9660-image"}
	p.Schemes = []string{"sftp"}
	p.Folders = []string{"/srv"}

	menu := schema.NewItem("menu", types.KindMenu)
	menu.Label, menu.Tooltip, menu.Icon = "Tools", "Tool actions", "folder"
	menu.Children = []string{"single", "empty-lists"}

	multi := schema.NewItem("multi", types.KindAction)
	multi.Label = "Multi"
	multi.Enabled = false
	multi.TargetToolbar, multi.TargetBackground = true, true
	multi.IVersion = 3
	p = multi.Profiles[0]
	p.Path = "/usr/bin/first"
	p.MatchCase, p.IsFile, p.IsDir, p.AcceptMultiple = false, false, true, true
	second := schema.NewProfile("second", "multi")
	second.Name = "Second"
	second.Path = "/usr/bin/second"
	second.Parameters = "%d %f"
	second.MatchCase, second.IsFile, second.IsDir = false, true, true
	multi.Profiles = append(multi.Profiles, second)
	multi.Children = []string{"main", "second"}

	return []*types.Item{empty, single, menu, multi}
}

func TestRoundTripThroughEveryBackend(t *testing.T) {
	kinds := []string{types.BackendKVStore, types.BackendDesktop, types.BackendDump, types.BackendSchema}
	for _, kind := range kinds {
		for _, it := range roundTripItems() {
			t.Run(kind+"/"+it.ID, func(t *testing.T) {
				backends, err := New(types.Config{Backend: kind, DataDir: t.TempDir()}, nil)
				require.NoError(t, err)
				b := backends[0]
				require.NoError(t, b.Open())
				defer b.Close()

				require.NoError(t, b.WriteItem(it))
				got, err := b.ReadItem(it.ID)
				require.NoError(t, err)
				assert.True(t, record.Equal(it, got), "read back %+v", got)
				assert.Equal(t, it.Kind, got.Kind)
				assert.Equal(t, it.Children, got.Children)
				require.Len(t, got.Profiles, len(it.Profiles))
				for i, p := range it.Profiles {
					assert.ElementsMatch(t, p.Basenames, got.Profiles[i].Basenames)
					assert.ElementsMatch(t, p.Folders, got.Profiles[i].Folders)
					assert.Equal(t, p.MatchCase, got.Profiles[i].MatchCase)
					assert.Equal(t, it.ID, got.Profiles[i].ActionID)
				}

				items, err := b.ReadItems()
				require.NoError(t, err)
				require.Len(t, items, 1)
			})
		}
	}
}
