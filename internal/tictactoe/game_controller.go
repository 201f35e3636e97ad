package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/crosszero-backend/internal/apperror"
	"github.com/rocketscienceinc/crosszero-backend/internal/entity"
)

const (
	OutcomeInProgress Outcome = iota
	OutcomeWin
	OutcomeDraw
)

// WinCombos is checked in order: rows, columns, diagonals. The first match wins.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Outcome int

func (that Outcome) String() string {
	switch that {
	case OutcomeWin:
		return "win"
	case OutcomeDraw:
		return "draw"
	default:
		return "in-progress"
	}
}

// Result is the evaluation of a board. Winner and Combo are set only for OutcomeWin.
type Result struct {
	Outcome Outcome
	Winner  entity.Mark
	Combo   [3]int
}

func (that Result) IsOver() bool {
	return that.Outcome != OutcomeInProgress
}

// Evaluate reports whether the board holds a win, a draw or a game still in progress.
func Evaluate(board entity.Board) Result {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.MarkEmpty && a == b && b == c {
			return Result{Outcome: OutcomeWin, Winner: a, Combo: combo}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Result{Outcome: OutcomeInProgress}
	}

	return Result{Outcome: OutcomeDraw}
}

// MakeTurn places symbol on cell and advances the room. The room is left untouched on error.
func MakeTurn(room *entity.Room, symbol entity.Mark, cell int) (Result, error) {
	if err := validateMove(room, symbol, cell); err != nil {
		return Result{}, fmt.Errorf("%w: %w", apperror.ErrInvalidMove, err)
	}

	room.Board[cell] = symbol

	return updateRoomStatus(room, symbol), nil
}

// validateMove - checks if the move is valid.
func validateMove(room *entity.Room, symbol entity.Mark, cell int) error {
	if err := room.ConfirmPlaying(); err != nil {
		return err
	}

	if cell < 0 || cell >= len(room.Board) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, cell)
	}

	if room.CurrentPlayer != symbol {
		return apperror.ErrNotYourTurn
	}

	if room.Board[cell] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	return nil
}

// updateRoomStatus - checks the game status after a move.
func updateRoomStatus(room *entity.Room, symbol entity.Mark) Result {
	result := Evaluate(room.Board)

	if result.IsOver() {
		room.Status = entity.StatusConcluded
		return result
	}

	room.CurrentPlayer = symbol.Opponent()

	return result
}
