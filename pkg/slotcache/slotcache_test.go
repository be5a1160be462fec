package slotcache_test

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/pkg/slotcache"
)

func newCache(t *testing.T, capacity int) *slotcache.Cache[string] {
	t.Helper()

	c, err := slotcache.New[string](capacity)
	require.NoError(t, err, "New")

	return c
}

func Test_New_Returns_Error_When_Capacity_Invalid(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{-1, 0, slotcache.MaxCapacity + 1} {
		_, err := slotcache.New[string](capacity)
		require.ErrorIs(t, err, slotcache.ErrInvalidInput, "capacity %d", capacity)
	}
}

func Test_Insert_Returns_ErrFull_When_All_Slots_Occupied(t *testing.T) {
	t.Parallel()

	c := newCache(t, 3)

	require.NoError(t, c.Insert("a", "1"))
	require.NoError(t, c.Insert("b", "2"))
	require.NoError(t, c.Insert("c", "3"))

	err := c.Insert("d", "4")
	require.ErrorIs(t, err, slotcache.ErrFull)

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Contains("d"))
}

func Test_Insert_Reuses_Freed_Slot_When_Cache_Was_Full(t *testing.T) {
	t.Parallel()

	c := newCache(t, 3)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, c.Insert(key, key))
	}

	freed, ok := c.SlotOf("b")
	require.True(t, ok)

	_, removed := c.Remove("b")
	require.True(t, removed)

	require.NoError(t, c.Insert("d", "d"))

	got, ok := c.SlotOf("d")
	require.True(t, ok)
	assert.Equal(t, freed, got, "d should take the freed slot")

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be gone")
}

func Test_Insert_Reuses_Most_Recently_Freed_Slot_First(t *testing.T) {
	t.Parallel()

	c := newCache(t, 4)

	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Insert(key, key))
	}

	c.Remove("a")
	c.Remove("c")

	require.NoError(t, c.Insert("x", "x"))
	require.NoError(t, c.Insert("y", "y"))

	slotX, _ := c.SlotOf("x")
	slotY, _ := c.SlotOf("y")

	assert.Equal(t, 2, slotX)
	assert.Equal(t, 0, slotY)
}

func Test_Insert_Returns_ErrDuplicateKey_And_Keeps_Value_When_Key_Present(t *testing.T) {
	t.Parallel()

	c := newCache(t, 2)

	require.NoError(t, c.Insert("a", "first"))

	err := c.Insert("a", "second")
	require.ErrorIs(t, err, slotcache.ErrDuplicateKey)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got)
	assert.Equal(t, 1, c.Len())
}

func Test_Insert_Returns_ErrInvalidInput_When_Key_Too_Long(t *testing.T) {
	t.Parallel()

	c := newCache(t, 1)

	key := string(make([]byte, 4097))

	require.ErrorIs(t, c.Insert(key, "v"), slotcache.ErrInvalidInput)
	assert.Equal(t, 0, c.Len())
}

func Test_Remove_Returns_False_When_Key_Absent(t *testing.T) {
	t.Parallel()

	c := newCache(t, 1)

	_, ok := c.Remove("missing")
	assert.False(t, ok)
}

func Test_Retain_Removes_Rejected_Entries_And_Frees_Their_Slots(t *testing.T) {
	t.Parallel()

	c := newCache(t, 3)

	require.NoError(t, c.Insert("keep-1", "k"))
	require.NoError(t, c.Insert("drop", "d"))
	require.NoError(t, c.Insert("keep-2", "k"))

	removed := c.Retain(func(_ string, value string) bool { return value == "k" })

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"keep-1", "keep-2"}, c.Keys())

	require.NoError(t, c.Insert("new", "n"), "freed slot should be reusable")

	slot, _ := c.SlotOf("new")
	assert.Equal(t, 1, slot)
}

func Test_BatchQuery_Returns_Values_In_Slot_Order_Without_Duplicates(t *testing.T) {
	t.Parallel()

	c := newCache(t, 4)

	require.NoError(t, c.Insert("a", "A"))
	require.NoError(t, c.Insert("b", "B"))
	require.NoError(t, c.Insert("c", "C"))

	got, ok := c.BatchQuery([]string{"c", "missing", "a", "c"})
	require.True(t, ok)

	if diff := cmp.Diff([]string{"A", "C"}, got); diff != "" {
		t.Fatalf("BatchQuery mismatch (-want +got):\n%s", diff)
	}
}

func Test_BatchQuery_Returns_False_When_No_Key_Present(t *testing.T) {
	t.Parallel()

	c := newCache(t, 2)
	require.NoError(t, c.Insert("a", "A"))

	got, ok := c.BatchQuery([]string{"x", "y"})
	assert.False(t, ok)
	assert.Empty(t, got)

	_, ok = c.BatchQuery(nil)
	assert.False(t, ok)
}

func Test_Clear_Resets_Allocation_To_First_Slot(t *testing.T) {
	t.Parallel()

	c := newCache(t, 2)

	require.NoError(t, c.Insert("a", "A"))
	require.NoError(t, c.Insert("b", "B"))

	c.Clear()

	assert.Equal(t, 0, c.Len())
	require.NoError(t, c.Insert("c", "C"))

	slot, _ := c.SlotOf("c")
	assert.Equal(t, 0, slot)
}

// Random operations against a map model. After every step the cache must
// agree with the model and no two keys may share a slot.
func Test_Cache_Matches_Map_Model_When_Operations_Are_Random(t *testing.T) {
	t.Parallel()

	const capacity = 8

	for seed := range uint64(20) {
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		c := newCache(t, capacity)
		model := map[string]string{}

		for step := range 500 {
			key := "k" + strconv.Itoa(rng.IntN(16))
			value := strconv.Itoa(step)

			switch rng.IntN(4) {
			case 0, 1:
				err := c.Insert(key, value)

				_, exists := model[key]

				switch {
				case exists:
					require.ErrorIs(t, err, slotcache.ErrDuplicateKey, "seed %d step %d", seed, step)
				case len(model) == capacity:
					require.ErrorIs(t, err, slotcache.ErrFull, "seed %d step %d", seed, step)
				default:
					require.NoError(t, err, "seed %d step %d", seed, step)

					model[key] = value
				}
			case 2:
				got, ok := c.Remove(key)
				want, exists := model[key]

				require.Equal(t, exists, ok, "seed %d step %d", seed, step)
				require.Equal(t, want, got, "seed %d step %d", seed, step)

				delete(model, key)
			case 3:
				drop := rng.IntN(2) == 0
				c.Retain(func(k, _ string) bool { return !(drop && k == key) })

				if drop {
					delete(model, key)
				}
			}

			assertMatchesModel(t, c, model)
		}
	}
}

func assertMatchesModel(t *testing.T, c *slotcache.Cache[string], model map[string]string) {
	t.Helper()

	require.Equal(t, len(model), c.Len())
	require.LessOrEqual(t, c.Len(), c.Cap())

	seen := map[int]string{}

	for _, e := range c.Entries() {
		require.Equal(t, model[e.Key], e.Value, "entry %q", e.Key)

		if other, dup := seen[e.Slot]; dup {
			t.Fatalf("slot %d shared by %q and %q", e.Slot, other, e.Key)
		}

		seen[e.Slot] = e.Key
	}

	for key, want := range model {
		got, ok := c.Get(key)
		require.True(t, ok, "key %q", key)
		require.Equal(t, want, got, "key %q", key)
	}
}
