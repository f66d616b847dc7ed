package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jason-s-yu/tripeaks/internal/cache"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/jason-s-yu/tripeaks/internal/database"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/jason-s-yu/tripeaks/internal/historian"
	"github.com/jason-s-yu/tripeaks/internal/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const playHelp = `Commands:
  <slot id>  play the card in that slot (for example d3)
  <index>    play the card at that slot index
  d          draw from the stock
  h          list playable slots
  p / r      pause / resume
  n          deal a new game
  q          quit`

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play TriPeaks interactively",
		Long: `Play deals a game and reads moves from standard input.

` + playHelp + `

Examples:
  tripeaks play
  tripeaks play --seed 42 --layout ./pyramid.toml
  tripeaks play --history-db ~/.local/share/tripeaks/history.db`,
		Args: cobra.NoArgs,
		RunE: runPlay,
	}

	cmd.Flags().Int64("seed", 0, "seed for the sequence of dealt games")
	cmd.Flags().String("layout", "", "layout TOML file (default: built-in TriPeaks)")
	cmd.Flags().String("catalog", "", "card catalog TOML file (default: standard 52 cards)")
	cmd.Flags().Bool("history", false, "publish events to the Redis history queue")
	cmd.Flags().String("history-db", "", "record events into this SQLite history file")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lay, err := loadLayout(stringFlag(cmd, "layout", cfg.Layout))
	if err != nil {
		return err
	}
	cards, err := loadCatalog(stringFlag(cmd, "catalog", cfg.Catalog))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	engine := game.NewEngine(game.Config{
		Catalog: cards,
		Layout:  lay,
		Seed:    seedFlag(cmd, cfg.Seed),
		Logger:  logger,
	})
	engine.Subscribe(&eventPrinter{w: out})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if history, _ := cmd.Flags().GetBool("history"); history {
		closeFn := subscribePublisher(ctx, engine, cfg, logger)
		defer closeFn()
	}

	if path, _ := cmd.Flags().GetString("history-db"); path != "" {
		store, err := database.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer store.Close()

		rec := historian.NewRecorder(store, cfg, logger)
		engine.Subscribe(middleware.LogEvents(logger, "sqlite", rec))
		middleware.LogSubscribe(logger, "sqlite")
		defer func() {
			err := rec.Close(context.Background())
			if err != nil {
				logger.WithError(err).Error("failed to flush game history")
			}
			middleware.LogUnsubscribe(logger, "sqlite", err)
		}()
	}

	cmdr := game.NewCommander(engine)
	runErr := make(chan error, 1)
	go func() { runErr <- cmdr.Run(ctx) }()
	defer func() {
		cancel()
		<-runErr
	}()

	var startErr error
	if err := cmdr.Do(ctx, func(e *game.Engine) { startErr = e.StartNewGame() }); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	s := &playSession{ctx: ctx, cmdr: cmdr, out: out, width: terminalWidth()}
	fmt.Fprintln(out, playHelp)
	return s.loop(cmd.InOrStdin())
}

// subscribePublisher attaches a Redis publisher when Redis is reachable. Play
// continues without history otherwise.
func subscribePublisher(ctx context.Context, engine *game.Engine, cfg *config.Config, logger *logrus.Logger) func() {
	rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, playing without history")
		return func() {}
	}

	pub := cache.NewPublisher(rdb, cfg.Redis.Queue, logger)
	unsubscribe := engine.Subscribe(middleware.LogEvents(logger, "redis", pub))
	middleware.LogSubscribe(logger, "redis")
	return func() {
		unsubscribe()
		pub.Close()
		middleware.LogUnsubscribe(logger, "redis", rdb.Close())
	}
}

// playSession turns input lines into engine commands.
type playSession struct {
	ctx   context.Context
	cmdr  *game.Commander
	out   io.Writer
	width int
}

func (s *playSession) loop(in io.Reader) error {
	if err := s.board(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		quit, err := s.handle(strings.TrimSpace(scanner.Text()))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, game.ErrCommanderStopped) {
				return nil
			}
			return err
		}
		if quit {
			return nil
		}
	}
}

// handle runs one input line and reports whether the player quit.
func (s *playSession) handle(line string) (bool, error) {
	switch strings.ToLower(line) {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "?", "help":
		fmt.Fprintln(s.out, playHelp)
		return false, nil
	case "h", "hint":
		return false, s.hint()
	case "d", "draw":
		return false, s.do(func(e *game.Engine) { e.DrawFromStock() })
	case "p", "pause":
		return false, s.do(func(e *game.Engine) { e.PauseGame() })
	case "r", "resume":
		return false, s.do(func(e *game.Engine) { e.ResumeGame() })
	case "n", "new":
		var startErr error
		if err := s.cmdr.Do(s.ctx, func(e *game.Engine) { startErr = e.RestartGame() }); err != nil {
			return false, err
		}
		if startErr != nil {
			return false, startErr
		}
		return false, s.board()
	}

	snap, err := game.Query(s.ctx, s.cmdr, (*game.Engine).Snapshot)
	if err != nil {
		return false, err
	}
	if idx, err := strconv.Atoi(line); err == nil {
		if idx < 0 || idx >= len(snap.Slots) {
			fmt.Fprintf(s.out, "No slot at index %d.\n", idx)
			return false, nil
		}
		return false, s.do(func(e *game.Engine) { e.SelectIndex(idx) })
	}
	if !hasSlot(snap, line) {
		fmt.Fprintf(s.out, "Unknown command or slot %q. Enter ? for help.\n", line)
		return false, nil
	}
	return false, s.do(func(e *game.Engine) { e.SelectSlot(line) })
}

// do applies fn and redraws the board.
func (s *playSession) do(fn func(*game.Engine)) error {
	if err := s.cmdr.Do(s.ctx, fn); err != nil {
		return err
	}
	return s.board()
}

func (s *playSession) board() error {
	snap, err := game.Query(s.ctx, s.cmdr, (*game.Engine).Snapshot)
	if err != nil {
		return err
	}
	renderBoard(s.out, snap, s.width)
	return nil
}

func (s *playSession) hint() error {
	snap, err := game.Query(s.ctx, s.cmdr, (*game.Engine).Snapshot)
	if err != nil {
		return err
	}

	var ids []string
	for _, slot := range snap.Slots {
		if slot.Playable {
			ids = append(ids, slotLabelText(slot))
		}
	}
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "No tableau card matches the waste. Draw with d.")
		return nil
	}
	fmt.Fprintf(s.out, "Playable: %s\n", strings.Join(ids, ", "))
	return nil
}

func hasSlot(snap game.ObfGameState, id string) bool {
	for _, slot := range snap.Slots {
		if slot.NodeID != "" && slot.NodeID == id {
			return true
		}
	}
	return false
}

func slotLabelText(s game.ObfSlot) string {
	if s.NodeID != "" {
		return s.NodeID
	}
	return strconv.Itoa(s.Index)
}
