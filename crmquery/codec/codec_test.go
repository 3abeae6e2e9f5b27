package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string   `json:"name"`
	Type     string   `json:"type,omitempty"`
	Children []sample `json:"children,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"go-json", "json", "msgpack"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, c.Name())
	}
	_, ok := ByName("gob")
	assert.False(t, ok)
	assert.Equal(t, "go-json", Default.Name())
}

func TestCodecsPreserveNested(t *testing.T) {
	in := sample{Name: "placement", Type: "TO_ONE", Children: []sample{{Name: "id"}, {Name: "candidate"}}}
	for _, c := range []Codec{GoJSON{}, MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)
			var out sample
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestMsgPackUsesJSONTags(t *testing.T) {
	data, err := MsgPack{}.Marshal(sample{Name: "id"})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, MsgPack{}.Unmarshal(data, &m))
	assert.Equal(t, "id", m["name"])
}
