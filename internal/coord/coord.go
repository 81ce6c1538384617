// Package coord converts algebraic square labels such as "E2" to zero-based file/rank
// pairs and back.
package coord

import (
	"errors"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

var ErrInvalidCoord = errors.New("invalid coord")

// Coord is a zero-based file/rank pair. It is not bounded to an 8x8 board.
type Coord struct {
	File int
	Rank int
}

// Parse reads a label made of one letter followed by a decimal rank.
// The letter is case-insensitive; "E2" and "e2" both give {4, 1}.
func Parse(label string) (Coord, error) {
	label = strings.TrimSpace(label)
	if len(label) < 2 {
		return Coord{}, ErrInvalidCoord
	}
	f := label[0]
	if f >= 'a' && f <= 'z' {
		f -= 'a' - 'A'
	}
	if f < 'A' || f > 'Z' {
		return Coord{}, ErrInvalidCoord
	}
	digits := label[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Coord{}, ErrInvalidCoord
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Coord{}, ErrInvalidCoord
	}
	return Coord{File: int(f - 'A'), Rank: n - 1}, nil
}

func (c Coord) String() string {
	if c.File < 0 || c.File > 25 || c.Rank < -1 {
		return ""
	}
	return string(rune('A'+c.File)) + strconv.Itoa(c.Rank+1)
}

// OnBoard reports whether c is inside a standard 8x8 board.
func (c Coord) OnBoard() bool {
	return c.File >= 0 && c.File < 8 && c.Rank >= 0 && c.Rank < 8
}

// Square maps c onto the chess library's square type.
func (c Coord) Square() (nchess.Square, bool) {
	if !c.OnBoard() {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(c.File), nchess.Rank(c.Rank)), true
}

// RankDelta returns to.Rank - from.Rank for two labels.
func RankDelta(from, to string) (int, error) {
	a, err := Parse(from)
	if err != nil {
		return 0, err
	}
	b, err := Parse(to)
	if err != nil {
		return 0, err
	}
	return b.Rank - a.Rank, nil
}

// UCI renders a from/to pair in long algebraic form ("e2e4"). Labels that do not
// name an 8x8 square give "".
func UCI(from, to string) string {
	a, err := Parse(from)
	if err != nil {
		return ""
	}
	b, err := Parse(to)
	if err != nil {
		return ""
	}
	s1, ok1 := a.Square()
	s2, ok2 := b.Square()
	if !ok1 || !ok2 {
		return ""
	}
	return s1.String() + s2.String()
}
