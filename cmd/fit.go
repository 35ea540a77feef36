package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/pkg/geometry"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Compute the aspect-fit placement of an image inside a container",
	Example: `  textframe fit --container 300x300 --image-size 400x200
  textframe fit --container 300x300 --image-size 400x200 --box 20,70,60,10`,
	RunE: runFit,
}

var (
	fitContainer string
	fitImageSize string
	fitBox       string
)

// fitOutput is the JSON printed by the fit command
type fitOutput struct {
	Scale     float64        `json:"scale"`
	OffsetX   float64        `json:"offset_x"`
	OffsetY   float64        `json:"offset_y"`
	Displayed geometry.Rect  `json:"displayed"`
	Box       *geometry.Rect `json:"box,omitempty"`
}

func init() {
	RootCmd.AddCommand(fitCmd)

	fitCmd.Flags().StringVar(&fitContainer, "container", "", "Container size as WxH (required)")
	fitCmd.Flags().StringVar(&fitImageSize, "image-size", "", "Image size as WxH (required)")
	fitCmd.Flags().StringVar(&fitBox, "box", "", "Pixel box x,y,width,height to map into the container")

	for _, name := range []string{"container", "image-size"} {
		if err := fitCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func runFit(cmd *cobra.Command, args []string) error {
	container, err := geometry.ParseSize(fitContainer)
	if err != nil {
		return fmt.Errorf("invalid --container: %w", err)
	}
	size, err := geometry.ParseSize(fitImageSize)
	if err != nil {
		return fmt.Errorf("invalid --image-size: %w", err)
	}

	fit, err := geometry.AspectFit(container, size)
	if err != nil {
		return err
	}

	out := fitOutput{
		Scale:     fit.Scale,
		OffsetX:   fit.OffsetX,
		OffsetY:   fit.OffsetY,
		Displayed: fit.Displayed(),
	}
	if fitBox != "" {
		box, err := geometry.ParseRect(fitBox)
		if err != nil {
			return fmt.Errorf("invalid --box: %w", err)
		}
		mapped := fit.Apply(box)
		out.Box = &mapped
	}

	return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
}
