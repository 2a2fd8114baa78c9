package alloc

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mixkit/mixin/ident"
)

func TestHeap_ArrayLifecycle(t *testing.T) {
	h := Default()
	arr, err := h.AllocMixinArray(3, 1)
	require.NoError(t, err)
	require.Len(t, arr, 3)

	arr[0].Mixin = 7
	require.NoError(t, h.DeallocMixinArray(arr, 3, 1))
	assert.Equal(t, ident.Mixin(7), arr[0].Mixin, "released array stays readable")
	assert.ErrorIs(t, h.DeallocMixinArray(arr, 4, 1), ErrInvalidLayout)

	_, err = h.AllocMixinArray(-1, 1)
	assert.ErrorIs(t, err, ErrAllocationFailure)
}

func TestHeap_RawAndTypedMixins(t *testing.T) {
	type counter struct{ N int64 }
	type label struct{ Text string }

	raw, err := Heap{}.AllocMixin(LayoutOf(reflect.TypeFor[counter]()), 0)
	require.NoError(t, err)
	assert.Equal(t, int(MixinBufferSize(8, 8)), len(raw.Buf))

	typed, err := Heap{}.AllocMixin(LayoutOf(reflect.TypeFor[label]()), 0)
	require.NoError(t, err)
	(*label)(typed.Ptr()).Text = "ok"
	assert.Equal(t, "ok", (*label)(typed.Ptr()).Text)

	require.NoError(t, Heap{}.DeallocMixin(raw, Layout{Size: 8, Align: 8}, 0))
}

func TestMixinOnly_HidesArrayOperations(t *testing.T) {
	s := MixinOnly(Heap{})

	_, err := s.AllocMixinArray(1, 0)
	assert.ErrorIs(t, err, ErrArrayUnsupported)
	assert.ErrorIs(t, s.DeallocMixinArray(nil, 0, 0), ErrArrayUnsupported)

	b, err := s.AllocMixin(Layout{Size: 4, Align: 4}, 0)
	require.NoError(t, err)
	require.NoError(t, s.DeallocMixin(b, Layout{Size: 4, Align: 4}, 0))

	again := MixinOnly(s)
	assert.Equal(t, s, again, "wrapping twice is idempotent")
	assert.Equal(t, Heap{}, again.(interface{ Unwrap() MixinAllocator }).Unwrap())
}
