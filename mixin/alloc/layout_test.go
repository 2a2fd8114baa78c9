package alloc

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forEachAlign calls fn for every supported alignment.
func forEachAlign(fn func(align uintptr)) {
	for align := uintptr(1); align <= MaxAlign; align <<= 1 {
		fn(align)
	}
}

// TestMixinOffset_AllAlignments checks the offset contract for every
// alignment and a spread of buffer addresses.
func TestMixinOffset_AllAlignments(t *testing.T) {
	forEachAlign(func(align uintptr) {
		for base := uintptr(0); base < 2*align+2*PtrSize; base++ {
			off := MixinOffset(base, align)
			require.GreaterOrEqual(t, off, PtrSize, "align=%d base=%d", align, base)
			require.Zero(t, (base+off)%align, "mixin misaligned: align=%d base=%d off=%d", align, base, off)
			require.Less(t, off, PtrSize+align, "offset wastes a whole alignment unit")

			for _, size := range []uintptr{0, 1, 7, align, 3 * align} {
				need := max(size, 1)
				assert.LessOrEqual(t, off+need, MixinBufferSize(size, align),
					"mixin overruns buffer: align=%d base=%d size=%d", align, base, size)
			}
		}
	})
}

// TestMixinBufferSize_Examples pins the documented values.
func TestMixinBufferSize_Examples(t *testing.T) {
	assert.Equal(t, 4+3+PtrSize, MixinBufferSize(4, 4))
	assert.Equal(t, 16+63+PtrSize, MixinBufferSize(16, 64))
	assert.Equal(t, 1+PtrSize, MixinBufferSize(0, 1))
}

// TestOwnerRoundTrip_RealBuffers writes and recovers the back-reference
// through a bare mixin pointer for every alignment.
func TestOwnerRoundTrip_RealBuffers(t *testing.T) {
	forEachAlign(func(align uintptr) {
		l := Layout{Size: 24, Align: align}
		b, err := Heap{}.AllocMixin(l, 0)
		require.NoError(t, err)
		require.True(t, b.Valid())

		p := b.Ptr()
		require.Zero(t, uintptr(p)%align, "align=%d", align)

		owner := Owner(0xC0FFEE + align)
		PutOwner(b, owner)
		assert.Equal(t, owner, OwnerAt(p), "align=%d", align)
		assert.Equal(t, PtrSize, uintptr(p)-(b.Base()+b.Offset-PtrSize))
	})
}

func TestValidateLayout(t *testing.T) {
	type plain struct{ A, B int64 }
	type withPtr struct{ Name string }

	require.NoError(t, ValidateLayout(LayoutOf(reflect.TypeFor[plain]())))
	require.NoError(t, ValidateLayout(Layout{Size: 3, Align: 1}))
	require.NoError(t, ValidateLayout(Layout{Size: 64, Align: 64}))

	bad := []Layout{
		{Size: 8, Align: 0},
		{Size: 8, Align: 3},
		{Size: 8, Align: 2 * MaxAlign},
		{Size: 4, Align: 8, Type: reflect.TypeFor[plain]()},
		{Size: 16, Align: 1, Type: reflect.TypeFor[plain]()},
		{Size: 16, Align: 64, Type: reflect.TypeFor[withPtr](), HasPointers: true},
		{Size: 16, Align: 8, HasPointers: true},
	}
	for i, l := range bad {
		assert.ErrorIs(t, ValidateLayout(l), ErrInvalidLayout, "case %d", i)
	}
}

func TestHasPointers(t *testing.T) {
	type flat struct {
		A int32
		B [4]float64
		C struct{ D uint8 }
	}
	type nested struct {
		A int
		B [2]struct{ S []byte }
	}
	assert.False(t, HasPointers(reflect.TypeFor[flat]()))
	assert.False(t, HasPointers(reflect.TypeFor[[0]*int]()))
	assert.True(t, HasPointers(reflect.TypeFor[nested]()))
	assert.True(t, HasPointers(reflect.TypeFor[string]()))
	assert.True(t, HasPointers(reflect.TypeFor[map[int]int]()))
	assert.True(t, HasPointers(reflect.TypeFor[unsafe.Pointer]()))
}

// TestNewCell_TypedStorage checks typed cells share the raw layout and keep
// the mixin's pointers visible to the collector.
func TestNewCell_TypedStorage(t *testing.T) {
	type named struct {
		Name  string
		Count int
	}
	l := LayoutOf(reflect.TypeFor[named]())
	require.True(t, l.HasPointers)

	b, err := NewCell(l)
	require.NoError(t, err)
	assert.Equal(t, PtrSize, b.Offset)
	assert.Equal(t, MixinOffset(b.Base(), l.Align), b.Offset)

	m := (*named)(b.Ptr())
	m.Name = "renderer"
	m.Count = 3
	PutOwner(b, 42)
	assert.Equal(t, Owner(42), OwnerAt(b.Ptr()))
	assert.Equal(t, "renderer", m.Name)

	_, err = NewCell(Layout{Size: 8, Align: 8})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestNewCell_ZeroSized(t *testing.T) {
	type tag struct{}
	type tagged struct {
		_ tag
		P *int
	}
	b, err := NewCell(LayoutOf(reflect.TypeFor[tagged]()))
	require.NoError(t, err)
	require.NotNil(t, b.Ptr())

	raw, err := Heap{}.AllocMixin(LayoutOf(reflect.TypeFor[tag]()), 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, raw.Offset, uintptr(len(raw.Buf)-1))
}
