package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type group struct {
	ID      int   `json:"id" yaml:"id"`
	Members []int `json:"members" yaml:"members"`
}

type record struct {
	RunID  string    `json:"run_id" yaml:"run_id"`
	Groups []group   `json:"groups" yaml:"groups"`
	PE     []float64 `json:"pe,omitempty" yaml:"pe,omitempty"`
	CATE   *float64  `json:"cate,omitempty" yaml:"cate,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("gob")
	assert.False(t, ok)
	assert.Equal(t, "go-json", Default.Name())
}

func TestCodecs_PreserveRecords(t *testing.T) {
	effect := 2.5
	in := record{
		RunID:  "4b1e",
		Groups: []group{{ID: 0, Members: []int{0, 2}}, {ID: 1, Members: []int{1, 3, 4}}},
		PE:     []float64{0.5, 0.75},
		CATE:   &effect,
	}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, _ := ByName(name)
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out record
			require.NoError(t, c.Unmarshal(data, &out))
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGoJSON_ReadableByJSON(t *testing.T) {
	data, err := GoJSON{}.Marshal(group{ID: 7, Members: []int{1}})
	require.NoError(t, err)

	var out group
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, 7, out.ID)
}
