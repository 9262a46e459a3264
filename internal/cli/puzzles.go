package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/park285/Cheese-chess-trainer/internal/domain"
	"github.com/park285/Cheese-chess-trainer/internal/puzzle"
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles",
	Short: "Puzzle file tools",
}

var puzzlesCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate every record in a puzzle file",
	Long: `Replays each puzzle's solution from its FEN and reports records whose
moves are illegal or whose line does not end on the solver's move.`,
	Args: cobra.ExactArgs(1),
	RunE: runPuzzlesCheck,
}

func init() {
	puzzlesCmd.AddCommand(puzzlesCheckCmd)
}

func runPuzzlesCheck(cmd *cobra.Command, args []string) error {
	list, err := puzzle.LoadFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	bad := 0
	for _, p := range list {
		if err := puzzle.Validate(p); err != nil {
			bad++
			fmt.Fprintf(out, "  %-12s  invalid  %v\n", p.ID, err)
			continue
		}
		side, _ := puzzle.Orientation(p)
		fmt.Fprintf(out, "  %-12s  ok       %s, %d moves, %s\n", p.ID, side, len(p.Moves), domain.DifficultyFor(p.Rating))
	}
	fmt.Fprintf(out, "%d puzzles, %d invalid\n", len(list), bad)
	if bad > 0 {
		return fmt.Errorf("%d of %d puzzles are invalid", bad, len(list))
	}
	return nil
}
