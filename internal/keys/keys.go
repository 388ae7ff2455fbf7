// Package keys turns terminal key presses into review commands.
package keys

import (
	"context"
	"log/slog"

	"github.com/gdamore/tcell/v2"
)

// Command is a discrete navigation request from the reviewer.
type Command int

const (
	CommandBack Command = iota + 1
	CommandForward
	CommandDiscard
	CommandQuit
)

// Valid reports whether c is one of the review commands.
func (c Command) Valid() bool {
	return c >= CommandBack && c <= CommandQuit
}

func (c Command) String() string {
	switch c {
	case CommandBack:
		return "back"
	case CommandForward:
		return "forward"
	case CommandDiscard:
		return "discard"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Map translates a key event. Left, Right, Delete and Escape are the review
// keys; Ctrl+C also quits because the terminal is in raw mode.
func Map(ev *tcell.EventKey) (Command, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return CommandBack, true
	case tcell.KeyRight:
		return CommandForward, true
	case tcell.KeyDelete:
		return CommandDiscard, true
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return CommandQuit, true
	}
	return 0, false
}

// Source reads key events from a tcell screen.
type Source struct {
	screen tcell.Screen
	logger *slog.Logger
}

// OpenTerminal creates and initializes a screen on the controlling terminal.
// Callers must Fini it.
func OpenTerminal() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))
	return screen, nil
}

// NewSource wraps an initialized screen.
func NewSource(screen tcell.Screen, logger *slog.Logger) *Source {
	return &Source{screen: screen, logger: logger}
}

// Listen delivers commands to out until a quit key is pressed, ctx is done or
// the screen is finalized. The quit command is delivered before Listen
// returns. Listen does not close out.
func (s *Source) Listen(ctx context.Context, out chan<- Command) error {
	stop := context.AfterFunc(ctx, func() {
		s.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := s.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		case *tcell.EventResize:
			s.screen.Sync()
		case *tcell.EventKey:
			cmd, ok := Map(ev)
			if !ok {
				continue
			}
			s.logger.Debug("key command", "command", cmd.String())
			select {
			case out <- cmd:
			case <-ctx.Done():
				return ctx.Err()
			}
			if cmd == CommandQuit {
				return nil
			}
		}
	}
}

// Show replaces the screen content with lines.
func (s *Source) Show(lines ...string) {
	s.screen.Clear()
	width, _ := s.screen.Size()
	style := tcell.StyleDefault
	for y, line := range lines {
		col := 0
		for _, r := range line {
			if col >= width {
				break
			}
			s.screen.SetContent(col, y, r, nil, style)
			col++
		}
		if y == 0 {
			style = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}
	}
	s.screen.Show()
}
