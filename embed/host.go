package embed

import (
	"github.com/bitfsorg/presto-go/internal/log"
)

// Host is the page element that displays the embedded UI.
type Host interface {
	// Load shows the UI at url in the mount element.
	Load(url string) error

	// Navigate sends the top-level page to url, e.g. to open a wallet.
	Navigate(url string) error

	// Resize sets the mount element's height in pixels.
	Resize(height int) error
}

// NopHost logs host instructions and otherwise ignores them. It suits
// headless sessions where the UI lives elsewhere.
type NopHost struct{}

func (NopHost) Load(url string) error {
	log.Embed.Debug().Str("url", url).Msg("host load")
	return nil
}

func (NopHost) Navigate(url string) error {
	log.Embed.Info().Str("url", url).Msg("host navigate")
	return nil
}

func (NopHost) Resize(height int) error {
	log.Embed.Debug().Int("height", height).Msg("host resize")
	return nil
}
