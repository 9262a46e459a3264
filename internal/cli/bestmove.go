package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	corechess "github.com/park285/Cheese-chess-trainer/internal/chess"
	"github.com/park285/Cheese-chess-trainer/internal/config"
	"github.com/park285/Cheese-chess-trainer/internal/rules"
)

var (
	bestMoveFEN     string
	bestMoveRating  int
	bestMoveTimeout time.Duration
)

var bestMoveCmd = &cobra.Command{
	Use:   "bestmove",
	Short: "Ask the configured engine for a move",
	Args:  cobra.NoArgs,
	RunE:  runBestMove,
}

func init() {
	bestMoveCmd.Flags().StringVar(&bestMoveFEN, "fen", rules.Start().FEN(), "position to search")
	bestMoveCmd.Flags().IntVar(&bestMoveRating, "rating", 1500, "target playing strength")
	bestMoveCmd.Flags().DurationVar(&bestMoveTimeout, "timeout", 30*time.Second, "search timeout")
}

func runBestMove(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		return fmt.Errorf("STOCKFISH_PATH is required")
	}
	pos, err := rules.Load(bestMoveFEN)
	if err != nil {
		return err
	}

	engine, err := corechess.NewEngine(corechess.EngineConfig{
		BinaryPath: cfg.StockfishPath,
		Capacity:   1,
		Threads:    cfg.EngineThreads,
		HashMB:     cfg.EngineHashMB,
	})
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), bestMoveTimeout)
	defer cancel()
	strength := corechess.StrengthFor(bestMoveRating)
	uci, err := engine.BestMove(ctx, pos.FEN(), strength)
	if err != nil {
		return err
	}
	mv, err := rules.ApplyUCI(pos, uci)
	if err != nil {
		return fmt.Errorf("engine move %s: %w", uci, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) elo=%d skill=%d depth=%d\n",
		uci, mv.SAN, strength.Rating, strength.SkillLevel, strength.Depth)
	return nil
}
