package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/mixkit/internal/format"
	"github.com/joshuapare/mixkit/mixin/alloc"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

type layoutRow struct {
	Align      uintptr `json:"align"`
	BufferSize uintptr `json:"buffer_size"`
	Base       uintptr `json:"base"`
	Offset     uintptr `json:"offset"`
	Padding    uintptr `json:"padding"`
}

func newLayoutCmd() *cobra.Command {
	var (
		aligns []uint
		base   uint64
	)
	cmd := &cobra.Command{
		Use:   "layout <size>",
		Short: "Show mixin buffer sizes and offsets",
		Long: `The layout command prints, for a mixin of the given size, the buffer size
every allocation strategy requests and where the mixin starts inside a buffer
at the given base address. The owner handle occupies the pointer-sized bytes
right before the mixin.

Example:
  mixctl layout 24
  mixctl layout 24 --align 8 --align 64 --base 0x1003`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args, aligns, uintptr(base))
		},
	}
	cmd.Flags().UintSliceVar(&aligns, "align", nil, "Alignments to show (default: every power of two up to 4096)")
	cmd.Flags().Uint64Var(&base, "base", 0, "Buffer base address")
	return cmd
}

func runLayout(args []string, aligns []uint, base uintptr) error {
	size, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[0], err)
	}
	if len(aligns) == 0 {
		for a := uint(format.MinAlign); a <= format.MaxAlign; a <<= 1 {
			aligns = append(aligns, a)
		}
	}

	rows := make([]layoutRow, 0, len(aligns))
	for _, a := range aligns {
		align := uintptr(a)
		if err := alloc.ValidateLayout(alloc.Layout{Size: uintptr(size), Align: align}); err != nil {
			return err
		}
		off := alloc.MixinOffset(base, align)
		rows = append(rows, layoutRow{
			Align:      align,
			BufferSize: alloc.MixinBufferSize(uintptr(size), align),
			Base:       base,
			Offset:     off,
			Padding:    off - alloc.PtrSize,
		})
	}

	if jsonOut {
		return printJSON(rows)
	}
	printInfo("Mixin size %d, owner handle %d bytes, base %#x\n\n", size, alloc.PtrSize, base)
	printInfo("  %6s  %8s  %8s  %8s\n", "ALIGN", "BUFFER", "OFFSET", "PADDING")
	for _, r := range rows {
		printInfo("  %6d  %8d  %8d  %8d\n", r.Align, r.BufferSize, r.Offset, r.Padding)
	}
	return nil
}
