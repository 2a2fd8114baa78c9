package format

import "testing"

func TestAlignUp(t *testing.T) {
	cases := []struct {
		n, align, want uintptr
	}{
		{0, 1, 0},
		{1, 1, 1},
		{1, 8, 8},
		{8, 8, 8},
		{9, 16, 16},
		{4095, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, tc := range cases {
		if got := AlignUp(tc.n, tc.align); got != tc.want {
			t.Fatalf("AlignUp(%d, %d) = %d, want %d", tc.n, tc.align, got, tc.want)
		}
	}
}

func TestPadding(t *testing.T) {
	for align := uintptr(1); align <= MaxAlign; align <<= 1 {
		for n := uintptr(0); n < 3*align; n++ {
			p := Padding(n, align)
			if p >= align {
				t.Fatalf("Padding(%d, %d) = %d, must be < align", n, align, p)
			}
			if !Aligned(n+p, align) {
				t.Fatalf("n+Padding(%d, %d) not aligned", n, align)
			}
			if n+p != AlignUp(n, align) {
				t.Fatalf("Padding and AlignUp disagree for n=%d align=%d", n, align)
			}
		}
	}
}

func TestIsPow2(t *testing.T) {
	for _, n := range []uintptr{1, 2, 4, 64, 4096} {
		if !IsPow2(n) {
			t.Fatalf("IsPow2(%d) = false", n)
		}
	}
	for _, n := range []uintptr{0, 3, 6, 12, 4095} {
		if IsPow2(n) {
			t.Fatalf("IsPow2(%d) = true", n)
		}
	}
}
