//go:build !unix

package alloc

import "os"

func pageSize() int {
	return os.Getpagesize()
}

// mapPages falls back to heap pages where anonymous mappings are unavailable.
func mapPages(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapPages([]byte) error { return nil }
