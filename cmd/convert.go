package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a normalized bottom-left box into top-left image pixels",
	Long: `Convert a box from the normalized, bottom-left-origin space OCR services
report into top-left pixel coordinates for an image of the given size.
With --invert a pixel box is converted back.`,
	Example: `  textframe convert --box 0.1,0.2,0.3,0.1 --size 200x100
  textframe convert --box 20,70,60,10 --size 200x100 --invert`,
	RunE: runConvert,
}

var (
	convertBox    string
	convertSize   string
	convertInvert bool
)

func init() {
	RootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertBox, "box", "", "Box as x,y,width,height (required)")
	convertCmd.Flags().StringVar(&convertSize, "size", "", "Image size as WxH (required)")
	convertCmd.Flags().BoolVar(&convertInvert, "invert", false, "Convert a top-left pixel box to normalized bottom-left")

	for _, name := range []string{"box", "size"} {
		if err := convertCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	box, err := geometry.ParseRect(convertBox)
	if err != nil {
		return fmt.Errorf("invalid --box: %w", err)
	}
	size, err := geometry.ParseSize(convertSize)
	if err != nil {
		return fmt.Errorf("invalid --size: %w", err)
	}

	var out geometry.Rect
	switch {
	case convertInvert:
		out, err = geometry.ToNormalized(box, size)
	case cfg.Clamp:
		out, err = geometry.ToPixelClamped(box, size)
	default:
		out, err = geometry.ToPixel(box, size)
	}
	if err != nil {
		return err
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
}
