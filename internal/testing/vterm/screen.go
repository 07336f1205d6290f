// Package vterm replays terminal output into a fixed grid of cells so tests can
// assert on what a user would see after cursor moves and partial redraws.
package vterm

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Screen is a minimal virtual terminal. It implements io.Writer and is safe for
// concurrent use.
type Screen struct {
	mu      sync.Mutex
	rows    int
	cols    int
	cells   [][]rune
	x, y    int
	pending []byte // incomplete escape sequence or rune from the previous write
	alt     bool
	writes  int
}

// NewScreen creates a blank rows x cols screen
func NewScreen(rows, cols int) *Screen {
	s := &Screen{rows: rows, cols: cols}
	s.cells = make([][]rune, rows)
	for i := range s.cells {
		s.cells[i] = blankRow(cols)
	}
	return s
}

func blankRow(cols int) []rune {
	row := make([]rune, cols)
	for j := range row {
		row[j] = ' '
	}
	return row
}

// Write applies p to the screen
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	data := append(s.pending, p...)
	s.pending = nil

	for i := 0; i < len(data); {
		switch b := data[i]; {
		case b == 0x1b:
			n, ok := s.escape(data[i:])
			if !ok {
				s.pending = append([]byte(nil), data[i:]...)
				return len(p), nil
			}
			i += n
		case b == '\r':
			s.x = 0
			i++
		case b == '\n':
			s.lineFeed()
			i++
		case b == '\b':
			if s.x > 0 {
				s.x--
			}
			i++
		default:
			if !utf8.FullRune(data[i:]) {
				s.pending = append([]byte(nil), data[i:]...)
				return len(p), nil
			}
			r, size := utf8.DecodeRune(data[i:])
			s.put(r)
			i += size
		}
	}
	return len(p), nil
}

// escape handles one CSI sequence at the start of data. It returns false when
// the sequence is not complete yet.
func (s *Screen) escape(data []byte) (int, bool) {
	if len(data) < 2 {
		return 0, false
	}
	if data[1] != '[' {
		return 2, true
	}

	private := false
	var params []int
	current, seen := 0, false
	for i := 2; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '?':
			private = true
		case c >= '0' && c <= '9':
			current = current*10 + int(c-'0')
			seen = true
		case c == ';':
			params = append(params, current)
			current, seen = 0, false
		default:
			if seen || len(params) > 0 {
				params = append(params, current)
			}
			s.command(c, params, private)
			return i + 1, true
		}
	}
	return 0, false
}

func param(params []int, i, def int) int {
	if i < len(params) && params[i] > 0 {
		return params[i]
	}
	return def
}

func (s *Screen) command(cmd byte, params []int, private bool) {
	if private {
		if (cmd == 'h' || cmd == 'l') && param(params, 0, 0) == 1049 {
			s.alt = cmd == 'h'
		}
		return
	}

	switch cmd {
	case 'H', 'f':
		s.y = min(param(params, 0, 1), s.rows) - 1
		s.x = min(param(params, 1, 1), s.cols) - 1
	case 'J':
		switch param(params, 0, 0) {
		case 0:
			s.clearRange(s.y, s.x, s.rows-1, s.cols)
		case 1:
			s.clearRange(0, 0, s.y, s.x+1)
		case 2, 3:
			s.clearRange(0, 0, s.rows-1, s.cols)
		}
	case 'K':
		switch param(params, 0, 0) {
		case 0:
			s.clearRange(s.y, s.x, s.y, s.cols)
		case 1:
			s.clearRange(s.y, 0, s.y, s.x+1)
		case 2:
			s.clearRange(s.y, 0, s.y, s.cols)
		}
	case 'A':
		s.y = max(0, s.y-param(params, 0, 1))
	case 'B':
		s.y = min(s.rows-1, s.y+param(params, 0, 1))
	case 'C':
		s.x = min(s.cols-1, s.x+param(params, 0, 1))
	case 'D':
		s.x = max(0, s.x-param(params, 0, 1))
	}
	// SGR ('m') and scroll regions ('r') do not change cell contents
}

// clearRange blanks cells from (y0, x0) up to but excluding (y1, x1), row-major.
func (s *Screen) clearRange(y0, x0, y1, x1 int) {
	for y := y0; y <= y1 && y < s.rows; y++ {
		from, to := 0, s.cols
		if y == y0 {
			from = x0
		}
		if y == y1 {
			to = x1
		}
		for x := max(from, 0); x < to && x < s.cols; x++ {
			s.cells[y][x] = ' '
		}
	}
}

func (s *Screen) put(r rune) {
	if s.x >= s.cols {
		s.x = 0
		s.lineFeed()
	}
	s.cells[s.y][s.x] = r
	s.x++
}

func (s *Screen) lineFeed() {
	s.x = 0
	if s.y < s.rows-1 {
		s.y++
		return
	}
	copy(s.cells, s.cells[1:])
	s.cells[s.rows-1] = blankRow(s.cols)
}

// Line returns row i with trailing blanks trimmed
func (s *Screen) Line(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.rows {
		return ""
	}
	return strings.TrimRight(string(s.cells[i]), " ")
}

// Text returns the whole screen, one line per row
func (s *Screen) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, s.rows)
	for i, row := range s.cells {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

// Contains reports whether text appears on any row
func (s *Screen) Contains(text string) bool {
	return strings.Contains(s.Text(), text)
}

// AltScreen reports whether the alternate screen buffer is active
func (s *Screen) AltScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alt
}

// Writes counts Write calls
func (s *Screen) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
