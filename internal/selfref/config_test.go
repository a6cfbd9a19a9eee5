package selfref

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseRefKind(t *testing.T) {
	tests := []struct {
		in   string
		want RefKind
	}{
		{"object", ObjectRefs},
		{"OBJ", ObjectRefs},
		{" region ", RegionRefs},
		{"dataset_region", RegionRefs},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRefKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRefKind("pointer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"pointer"`)
}

func TestRefKind_String(t *testing.T) {
	assert.Equal(t, "object", ObjectRefs.String())
	assert.Equal(t, "region", RegionRefs.String())
	assert.Equal(t, "RefKind(7)", RefKind(7).String())
}

func TestLoadPlan(t *testing.T) {
	cfg := DefaultConfig("out.h5")
	plan := `
dataset: /refs
length: 5
kind: region
start: 1
count: 3
`
	require.NoError(t, LoadPlan(strings.NewReader(plan), &cfg))

	want := Config{
		Path:    "out.h5",
		Dataset: "/refs",
		Length:  5,
		Kind:    RegionRefs,
		Start:   1,
		Count:   3,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPlan_Partial(t *testing.T) {
	cfg := DefaultConfig("out.h5")
	require.NoError(t, LoadPlan(strings.NewReader("kind: region\n"), &cfg))

	want := DefaultConfig("out.h5")
	want.Kind = RegionRefs
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPlan_Empty(t *testing.T) {
	cfg := DefaultConfig("out.h5")
	require.NoError(t, LoadPlan(strings.NewReader(""), &cfg))
	assert.Equal(t, DefaultConfig("out.h5"), cfg)
}

func TestLoadPlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want string
	}{
		{"unknown field", "dataset: /x\nbogus: 1\n", "field bogus not found"},
		{"bad kind", "kind: pointer\n", `unknown reference kind "pointer"`},
		{"nested dataset", "dataset: /a/b\n", "single name under the root group"},
		{"zero length", "length: 0\n", "length must be positive"},
		{"region past end", "kind: region\nstart: 2\ncount: 2\n", "outside length 3"},
		{"zero count", "kind: region\ncount: 0\n", "count must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("out.h5")
			err := LoadPlan(strings.NewReader(tt.plan), &cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig("")
	require.ErrorContains(t, cfg.Validate(), "output path is empty")

	cfg = DefaultConfig("out.h5")
	require.NoError(t, cfg.Validate())

	// Object mode ignores the region fields.
	cfg.Start, cfg.Count = 10, 0
	require.NoError(t, cfg.Validate())

	cfg.Kind = RefKind(9)
	require.ErrorContains(t, cfg.Validate(), "invalid reference kind")
}

func TestRefKind_MarshalYAML(t *testing.T) {
	out, err := yaml.Marshal(DefaultConfig("out.h5"))
	require.NoError(t, err)
	assert.Equal(t, "dataset: /testDs\nlength: 3\nkind: object\nstart: 0\ncount: 2\n", string(out))
}
