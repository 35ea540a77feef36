//go:build !cgo

package tesseract

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/textframe/pkg/providers"
	"github.com/lehigh-university-libraries/textframe/pkg/textinfo"
)

var errUnavailable = errors.New("tesseract provider requires a cgo build with libtesseract installed")

// ValidateConfig always fails without cgo
func (p *Provider) ValidateConfig(config providers.Config) error {
	return errUnavailable
}

// Recognize always fails without cgo
func (p *Provider) Recognize(ctx context.Context, config providers.Config, img providers.Image) ([]textinfo.Observation, error) {
	return nil, errUnavailable
}
