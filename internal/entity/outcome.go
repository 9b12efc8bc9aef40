package entity

const (
	OutcomeRunning   Outcome = "running"
	OutcomeAWins     Outcome = "a_wins"
	OutcomeBWins     Outcome = "b_wins"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

type Outcome string

// Winner - returns the winning role, or RoleNone for draws and unfinished games.
func (that Outcome) Winner() Role {
	switch that {
	case OutcomeAWins:
		return RoleA
	case OutcomeBWins:
		return RoleB
	default:
		return RoleNone
	}
}

func winsFor(role Role) Outcome {
	if role == RoleB {
		return OutcomeBWins
	}
	return OutcomeAWins
}

// Evaluate - checks both boards against the win and draw conditions. Board a is checked first.
func Evaluate(a, b Board) Outcome {
	if isWin(a) {
		return OutcomeAWins
	}

	if isWin(b) {
		return OutcomeBWins
	}

	// the game will continue until all the cells are taken
	for row := range BoardSize {
		for col := range BoardSize {
			if !a[row][col] && !b[row][col] {
				return OutcomeRunning
			}
		}
	}

	return OutcomeDraw
}

func isWin(board Board) bool {
	return isRowWin(board) || isColumnWin(board) || isDiagonalWin(board) || isCornersWin(board)
}

func isRowWin(board Board) bool {
	for _, row := range board {
		if row[0] && row[1] && row[2] {
			return true
		}
	}
	return false
}

func isColumnWin(board Board) bool {
	for col := range BoardSize {
		if board[0][col] && board[1][col] && board[2][col] {
			return true
		}
	}
	return false
}

func isDiagonalWin(board Board) bool {
	return (board[0][0] && board[1][1] && board[2][2]) ||
		(board[0][2] && board[1][1] && board[2][0])
}

// isCornersWin - holding all four corners also wins.
func isCornersWin(board Board) bool {
	return board[0][0] && board[0][2] && board[2][0] && board[2][2]
}
