package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsColumn(t *testing.T) {
	v, err := Tags{"sea", "dusk"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["sea","dusk"]`, v)

	v, err = Tags(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	tests := []struct {
		name string
		src  any
		want Tags
	}{
		{"string", `["a","b"]`, Tags{"a", "b"}},
		{"bytes", []byte(`["a"]`), Tags{"a"}},
		{"null", nil, nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Tags
			require.NoError(t, got.Scan(tt.src))
			assert.Equal(t, tt.want, got)
		})
	}

	var bad Tags
	assert.Error(t, bad.Scan(42))
}

func TestStorageKeys(t *testing.T) {
	p := Photo{StorageID: "photos/u1/a.png", ThumbnailStorageID: "photos/u1/a.png_thumb.jpg"}
	assert.Equal(t, []string{"photos/u1/a.png", "photos/u1/a.png_thumb.jpg"}, p.StorageKeys())

	p.ThumbnailStorageID = p.StorageID
	assert.Equal(t, []string{"photos/u1/a.png"}, p.StorageKeys())
}
