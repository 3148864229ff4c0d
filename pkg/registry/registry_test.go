package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestItem struct {
	ID   string
	Name string
}

func TestBaseRegistry_Register(t *testing.T) {
	r := NewBaseRegistry[TestItem]()

	err := r.Register("test-1", TestItem{ID: "test-1", Name: "Test Item 1"})
	require.NoError(t, err)

	err = r.Register("", TestItem{Name: "no name"})
	assert.Error(t, err, "empty name must be rejected")

	// Re-registering an existing name replaces it rather than erroring.
	err = r.Register("test-1", TestItem{ID: "test-1", Name: "Replaced"})
	require.NoError(t, err)

	item, ok := r.Get("test-1")
	require.True(t, ok)
	assert.Equal(t, "Replaced", item.Name)
	assert.Equal(t, 1, r.Count(), "replacing must not grow the registry")
}

func TestBaseRegistry_Get(t *testing.T) {
	r := NewBaseRegistry[TestItem]()
	testItem := TestItem{ID: "test-1", Name: "Test Item 1"}
	require.NoError(t, r.Register("test-1", testItem))

	item, ok := r.Get("test-1")
	require.True(t, ok)
	assert.Equal(t, testItem, item)

	_, ok = r.Get("non-existing")
	assert.False(t, ok)
}

func TestBaseRegistry_ListPreservesOrder(t *testing.T) {
	r := NewBaseRegistry[TestItem]()

	assert.Empty(t, r.List())

	testItems := []TestItem{
		{ID: "test-3", Name: "Test Item 3"},
		{ID: "test-1", Name: "Test Item 1"},
		{ID: "test-2", Name: "Test Item 2"},
	}
	for _, item := range testItems {
		require.NoError(t, r.Register(item.ID, item))
	}

	items := r.List()
	require.Len(t, items, len(testItems))
	for i, item := range items {
		assert.Equal(t, testItems[i].ID, item.ID, "List must preserve registration order")
	}

	names := r.Names()
	require.Len(t, names, len(testItems))
	assert.Equal(t, []string{"test-3", "test-1", "test-2"}, names)
}

func TestBaseRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewBaseRegistry[TestItem]()
	require.NoError(t, r.Register("test-1", TestItem{ID: "test-1", Name: "Test Item 1"}))

	assert.True(t, r.Remove("test-1"), "first removal of a registered name returns true")
	assert.False(t, r.Remove("test-1"), "second removal of the same name returns false")
	assert.False(t, r.Remove("never-registered"))

	_, ok := r.Get("test-1")
	assert.False(t, ok)
}

func TestBaseRegistry_Count(t *testing.T) {
	r := NewBaseRegistry[TestItem]()
	assert.Equal(t, 0, r.Count())

	testItems := []TestItem{
		{ID: "test-1", Name: "Test Item 1"},
		{ID: "test-2", Name: "Test Item 2"},
	}
	for i, item := range testItems {
		require.NoError(t, r.Register(item.ID, item))
		assert.Equal(t, i+1, r.Count())
	}
}

func TestBaseRegistry_Clear(t *testing.T) {
	r := NewBaseRegistry[TestItem]()
	testItems := []TestItem{
		{ID: "test-1", Name: "Test Item 1"},
		{ID: "test-2", Name: "Test Item 2"},
	}
	for _, item := range testItems {
		require.NoError(t, r.Register(item.ID, item))
	}
	require.Equal(t, len(testItems), r.Count())

	r.Clear()

	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.List())
	assert.Empty(t, r.Names())
	for _, item := range testItems {
		_, ok := r.Get(item.ID)
		assert.False(t, ok)
	}
}

func TestBaseRegistry_Concurrency(t *testing.T) {
	r := NewBaseRegistry[TestItem]()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			item := TestItem{ID: fmt.Sprintf("concurrent-%d", i), Name: fmt.Sprintf("Concurrent Item %d", i)}
			_ = r.Register(item.ID, item)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Get(fmt.Sprintf("concurrent-%d", i))
			r.Count()
			r.List()
		}
	}()

	wg.Wait()

	assert.Equal(t, 100, r.Count())
}
