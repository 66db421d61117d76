package pcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(1 << 20)
	require.Nil(t, err)
	parts := [][]interface{}{
		{1, 2, 3},
		{"a", "b"},
	}
	require.Nil(t, c.Put("ds-1", parts))
	got, ok := c.Get("ds-1")
	require.True(t, ok)
	require.Equal(t, parts, got)
}

func TestGetMissing(t *testing.T) {
	c, err := New(1 << 20)
	require.Nil(t, err)
	_, ok := c.Get("nope")
	require.False(t, ok)
}

func TestDel(t *testing.T) {
	c, err := New(1 << 20)
	require.Nil(t, err)
	require.Nil(t, c.Put("ds-1", [][]interface{}{{1}}))
	c.Del("ds-1")
	_, ok := c.Get("ds-1")
	require.False(t, ok)
}

func TestPutRejectsUnencodableRows(t *testing.T) {
	c, err := New(1 << 20)
	require.Nil(t, err)
	err = c.Put("ds-1", [][]interface{}{{make(chan int)}})
	require.NotNil(t, err)
}
