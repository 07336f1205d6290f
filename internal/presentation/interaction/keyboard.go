package interaction

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/penwyp/go-heatmap-monitor/internal/util"
)

// KeyboardReader handles keyboard input in raw mode
type KeyboardReader struct {
	in      io.Reader
	restore func() error
	input   chan KeyEvent
	stop    chan struct{}
	once    sync.Once
}

// KeyEvent represents a keyboard event
type KeyEvent struct {
	Key  rune
	Type KeyType
}

// KeyType represents the type of key pressed
type KeyType int

const (
	KeyChar KeyType = iota
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
)

// NewKeyboardReader puts stdin into raw mode and starts reading keys.
func NewKeyboardReader() (*KeyboardReader, error) {
	restore, err := enableRawMode(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to enable raw mode: %w", err)
	}
	kr := newKeyboardReader(os.Stdin)
	kr.restore = restore
	go kr.readInput()
	return kr, nil
}

// NewKeyboardReaderFrom reads keys from r without touching the terminal.
func NewKeyboardReaderFrom(r io.Reader) *KeyboardReader {
	kr := newKeyboardReader(r)
	go kr.readInput()
	return kr
}

func newKeyboardReader(r io.Reader) *KeyboardReader {
	return &KeyboardReader{
		in:    r,
		input: make(chan KeyEvent, 10),
		stop:  make(chan struct{}),
	}
}

// readInput reads keyboard input in a goroutine. The event channel is closed
// when the input ends.
func (kr *KeyboardReader) readInput() {
	defer close(kr.input)
	buf := make([]byte, 8)

	for {
		select {
		case <-kr.stop:
			return
		default:
		}

		n, err := kr.in.Read(buf)
		if n > 0 {
			for _, event := range parseInput(buf[:n]) {
				select {
				case kr.input <- event:
				case <-kr.stop:
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				util.LogDebugf("Keyboard input ended: %v", err)
			}
			return
		}
	}
}

// parseInput splits a raw read into key events. Unknown escape sequences are dropped.
func parseInput(buf []byte) []KeyEvent {
	var events []KeyEvent
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b != 27 {
			events = append(events, KeyEvent{Key: rune(b), Type: KeyChar})
			continue
		}

		// Lone ESC
		if i+1 >= len(buf) {
			events = append(events, KeyEvent{Key: 27, Type: KeyEscape})
			continue
		}
		if buf[i+1] != '[' || i+2 >= len(buf) {
			events = append(events, KeyEvent{Key: 27, Type: KeyEscape})
			continue
		}

		switch buf[i+2] {
		case 'A':
			events = append(events, KeyEvent{Type: KeyUp})
		case 'B':
			events = append(events, KeyEvent{Type: KeyDown})
		case 'C':
			events = append(events, KeyEvent{Type: KeyRight})
		case 'D':
			events = append(events, KeyEvent{Type: KeyLeft})
		}
		i += 2
	}
	return events
}

// Events returns the keyboard event channel
func (kr *KeyboardReader) Events() <-chan KeyEvent {
	return kr.input
}

// Close stops the keyboard reader and restores terminal
func (kr *KeyboardReader) Close() error {
	var err error
	kr.once.Do(func() {
		close(kr.stop)
		if kr.restore != nil {
			err = kr.restore()
		}
	})
	return err
}
