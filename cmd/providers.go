package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textframe/pkg/applevision"
	"github.com/lehigh-university-libraries/textframe/pkg/azure"
	"github.com/lehigh-university-libraries/textframe/pkg/googlevision"
	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/tesseract"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available OCR providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := newRegistry()
		for _, name := range registry.List() {
			p, _ := registry.Get(name)
			status := "ready"
			if err := p.ValidateConfig(cfg.Recognition()); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, status)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(providersCmd)
}

func newRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(googlevision.New(), "googlevision", "gcv")
	registry.Register(azure.New(), "azure-read")
	registry.Register(newTesseract(), "gosseract")
	registry.Register(applevision.New(), "apple", "vision")
	return registry
}

func newTesseract() *tesseract.Provider {
	p := tesseract.New()
	p.Binarize = cfg.Tesseract.Binarize
	p.Threshold = uint8(cfg.Tesseract.Threshold)
	return p
}

// selectedProvider returns the configured provider
func selectedProvider() (providers.Provider, error) {
	return newRegistry().Get(cfg.Provider)
}
