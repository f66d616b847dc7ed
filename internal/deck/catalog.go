package deck

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/jason-s-yu/tripeaks/internal/models"
)

// CatalogFile is the on-disk card catalog:
//
//	[[cards]]
//	rank = "ace"
//	suit = "hearts"
//	face_image = "faces/ah.png"
type CatalogFile struct {
	Name  string        `toml:"name"`
	Cards []CatalogCard `toml:"cards"`
}

// CatalogCard is one [[cards]] entry.
type CatalogCard struct {
	Rank      string `toml:"rank"`
	Suit      string `toml:"suit"`
	Name      string `toml:"name"`
	FaceImage string `toml:"face_image"`
	BackImage string `toml:"back_image"`
}

// LoadCatalogFile decodes a TOML catalog. An entry whose rank or suit cannot be
// parsed becomes a nil slot so ValidateCompleteSet reports it; only an
// unreadable or malformed file is an error.
func LoadCatalogFile(path string) ([]*models.Card, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog not found: %s", path)
	}

	var file CatalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("error parsing catalog %s: %w", path, err)
	}

	cards := make([]*models.Card, 0, len(file.Cards))
	for _, entry := range file.Cards {
		cards = append(cards, entry.toCard())
	}
	return cards, nil
}

func (e CatalogCard) toCard() *models.Card {
	rank, err := models.ParseRank(e.Rank)
	if err != nil {
		return nil
	}
	suit, err := models.ParseSuit(e.Suit)
	if err != nil {
		return nil
	}
	c := models.NewCard(rank, suit)
	if e.Name != "" {
		c.Name = e.Name
	}
	c.FaceImage = e.FaceImage
	c.BackImage = e.BackImage
	return c
}
