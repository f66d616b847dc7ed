package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	colorize "github.com/fatih/color"
	"github.com/jason-s-yu/tripeaks/internal/models"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [card]",
		Short: "Display a card, with ANSI art when the catalog has a face image",
		Long: `Show prints a card from the catalog. Cards are named by code ("7H", "TS",
"10d") or by name ("queen of spades").

When the catalog entry has a face_image (PNG, JPEG or GIF, relative to the
catalog file) it is rendered as 24-bit ANSI art next to the details.

Examples:
  tripeaks show AS
  tripeaks show --catalog ./decks/classic.toml "king of hearts"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			key, err := parseCardArg(args[0])
			if err != nil {
				return err
			}

			catalogPath := stringFlag(cmd, "catalog", cfg.Catalog)
			cards, err := loadCatalog(catalogPath)
			if err != nil {
				return fmt.Errorf("error loading catalog: %v", err)
			}

			var card *models.Card
			for _, c := range cards {
				if c != nil && c.Key() == key {
					card = c
					break
				}
			}
			if card == nil {
				return fmt.Errorf("card %s is not in the catalog", key)
			}

			var art string
			if card.FaceImage != "" {
				path := card.FaceImage
				if !filepath.IsAbs(path) && catalogPath != "" {
					path = filepath.Join(filepath.Dir(catalogPath), path)
				}
				img, err := loadImage(path)
				if err != nil {
					return fmt.Errorf("error loading face image: %v", err)
				}
				width, _ := cmd.Flags().GetInt("width")
				art = imageToAnsi(img, width, artHeight(img, width))
			}

			displayCard(cmd.OutOrStdout(), card, art)
			return nil
		},
	}

	cmd.Flags().String("catalog", "", "card catalog TOML file (default: standard 52 cards)")
	cmd.Flags().Int("width", 24, "width of the card art in columns")
	return cmd
}

// parseCardArg accepts "7H", "10d", "TS" or "seven of hearts".
func parseCardArg(s string) (models.Key, error) {
	v := strings.TrimSpace(s)
	var rankPart, suitPart string
	if i := strings.Index(strings.ToLower(v), " of "); i >= 0 {
		rankPart, suitPart = v[:i], v[i+4:]
	} else if len(v) >= 2 {
		rankPart, suitPart = v[:len(v)-1], v[len(v)-1:]
	} else {
		return models.Key{}, fmt.Errorf("invalid card: %q", s)
	}

	rank, err := models.ParseRank(rankPart)
	if err != nil {
		return models.Key{}, fmt.Errorf("invalid card %q: %w", s, err)
	}
	suit, err := models.ParseSuit(suitPart)
	if err != nil {
		return models.Key{}, fmt.Errorf("invalid card %q: %w", s, err)
	}
	return models.Key{Rank: rank, Suit: suit}, nil
}

// displayCard prints the art on the left and the details on the right.
func displayCard(w io.Writer, c *models.Card, art string) {
	suit := colorize.HiWhiteString("%s", c.Suit)
	colour := "black"
	if c.Suit.Red() {
		suit = colorize.HiRedString("%s", c.Suit)
		colour = "red"
	}

	infoLines := []string{
		colorize.CyanString("Card:   ") + colorize.HiWhiteString("%s", c.Name),
		colorize.CyanString("Code:   ") + colorize.HiWhiteString("%s", c.Code()),
		colorize.CyanString("Rank:   ") + colorize.HiWhiteString("%s (%d)", c.Rank, int(c.Rank)),
		colorize.CyanString("Suit:   ") + suit,
		colorize.CyanString("Colour: ") + colorize.HiWhiteString("%s", colour),
	}

	var artLines []string
	if art != "" {
		artLines = strings.Split(strings.TrimRight(art, "\n"), "\n")
	}
	artWidth := 0
	for _, line := range artLines {
		artWidth = max(artWidth, utf8.RuneCountInString(stripAnsi(line)))
	}
	infoStart := 0
	if artWidth > 0 {
		infoStart = artWidth + 4
	}

	fmt.Fprintln(w)
	for i := 0; i < max(len(artLines), len(infoLines)); i++ {
		fmt.Fprint(w, "  ")
		if i < len(artLines) {
			fmt.Fprint(w, artLines[i])
			fmt.Fprint(w, strings.Repeat(" ", infoStart-utf8.RuneCountInString(stripAnsi(artLines[i]))))
		} else {
			fmt.Fprint(w, strings.Repeat(" ", infoStart))
		}
		if i < len(infoLines) {
			fmt.Fprint(w, infoLines[i])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}
