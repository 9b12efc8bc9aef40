package tictactoe

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
)

const (
	rowLetters    = "ABC"
	columnNumbers = "123"
)

// DecodeMove - parses notation like "B2" into row 1, column 1.
// The row letter must be uppercase and exactly two characters are accepted.
func DecodeMove(text string) (int, int, error) {
	if len(text) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", apperror.ErrInvalidMove, text)
	}

	row := strings.IndexByte(rowLetters, text[0])
	col := strings.IndexByte(columnNumbers, text[1])

	if row < 0 || col < 0 {
		return 0, 0, fmt.Errorf("%w: %q", apperror.ErrInvalidMove, text)
	}

	return row, col, nil
}

// EncodeMove - the inverse of DecodeMove.
func EncodeMove(row, col int) string {
	if row < 0 || row >= len(rowLetters) || col < 0 || col >= len(columnNumbers) {
		return ""
	}

	return string([]byte{rowLetters[row], columnNumbers[col]})
}
