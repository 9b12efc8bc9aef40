package entity

const BoardSize = 3

// Board - the cells marked by one role. A cell is true when that role occupies it.
type Board [BoardSize][BoardSize]bool

func (that *Board) IsSet(row, col int) bool {
	return that[row][col]
}

func (that *Board) Set(row, col int) {
	that[row][col] = true
}

func (that *Board) Count() int {
	count := 0
	for _, row := range that {
		for _, cell := range row {
			if cell {
				count++
			}
		}
	}

	return count
}

// InBounds - reports whether row and col address a cell of the grid.
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}
