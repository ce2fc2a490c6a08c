package barrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_LoadOnFirstAccessThenCache(t *testing.T) {
	calls := 0
	table := NewTable([]string{"Bucket"}, func(name string) (any, bool) {
		calls++
		return name + "-value", true
	})

	v1, ok := table.Get("Bucket")
	assert.True(t, ok)
	assert.Equal(t, "Bucket-value", v1)

	v2, ok := table.Get("Bucket")
	assert.True(t, ok)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestTable_UnknownNameMissing(t *testing.T) {
	table := NewTable([]string{"Bucket"}, func(name string) (any, bool) {
		return nil, false
	})
	_, ok := table.Get("NoSuchExport")
	assert.False(t, ok)
}

func TestTable_NamesSorted(t *testing.T) {
	table := NewTable([]string{"Zebra", "Alpha"}, func(name string) (any, bool) { return nil, false })
	assert.Equal(t, []string{"Alpha", "Zebra"}, table.Names())
}

func TestTable_ResetForcesReload(t *testing.T) {
	calls := 0
	table := NewTable([]string{"Bucket"}, func(name string) (any, bool) {
		calls++
		return calls, true
	})
	v1, _ := table.Get("Bucket")
	table.Reset("Bucket")
	v2, _ := table.Get("Bucket")
	assert.NotEqual(t, v1, v2)
	assert.Equal(t, 2, calls)
}

func TestTable_Has(t *testing.T) {
	table := NewTable([]string{"Bucket"}, func(name string) (any, bool) { return nil, false })
	assert.True(t, table.Has("Bucket"))
	assert.False(t, table.Has("Other"))
}
