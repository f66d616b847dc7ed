package cli

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/tripeaks/internal/deck"
	"github.com/jason-s-yu/tripeaks/internal/layout"
	"github.com/jason-s-yu/tripeaks/internal/models"
)

// loadLayout returns the built-in TriPeaks layout for an empty path. A layout
// file that fails validation is rejected before any game starts.
func loadLayout(path string) (layout.Layout, error) {
	if path == "" {
		return layout.TriPeaks(), nil
	}

	l, err := layout.LoadFile(path)
	if err != nil {
		return layout.Layout{}, err
	}
	if res := layout.Validate(l); !res.OK() {
		return layout.Layout{}, fmt.Errorf("invalid layout %s: %s", path, strings.Join(res.Errors, "; "))
	}
	return l, nil
}

// loadCatalog returns the canonical set for an empty path. An incomplete
// catalog file is returned as is; the deck falls back and warns.
func loadCatalog(path string) ([]*models.Card, error) {
	if path == "" {
		return deck.GenerateCanonical(), nil
	}
	return deck.LoadCatalogFile(path)
}
