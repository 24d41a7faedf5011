package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fosdem/framexform/lib/xform"
)

func printTransform(cmd *cobra.Command) error {
	srcW, srcH, err := xform.ParseSize(srcSize)
	if err != nil {
		return fmt.Errorf("--src: %w", err)
	}
	dstW, dstH, err := xform.ParseSize(dstSize)
	if err != nil {
		return fmt.Errorf("--dst: %w", err)
	}

	t, err := xform.Build(srcW, srcH, dstW, dstH, rotation, keepAspect)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frame to crop: %s\n", t)

	inv, err := t.Invert()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "crop to frame: %s\n", inv)

	if box == "" {
		return nil
	}
	b, err := xform.ParseRect(box)
	if err != nil {
		return fmt.Errorf("--box: %w", err)
	}
	r := inv.MapRect(b)
	fmt.Fprintf(out, "box in frame: %g,%g,%g,%g\n", r.Left, r.Top, r.Right, r.Bottom)
	return nil
}
