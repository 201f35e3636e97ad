package entity

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"

	BoardSize = 9
)

// Mark is the content of a single cell and also names a player's side.
type Mark string

func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}

	return MarkX
}

type Board [BoardSize]Mark

func NewBoard() Board {
	return Board{}
}

func (that *Board) IsFull() bool {
	for _, cell := range that {
		if cell == MarkEmpty {
			return false
		}
	}

	return true
}
