package layout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsoubelet/toychain/commands"
	"github.com/jroimartin/gocui"
)

// View names.
const (
	PAST_CMD_VIEW = "pastcommand"
	INPUT_VIEW    = "input"
	LOGGER_VIEW   = "logger"
	MANUAL_VIEW   = "manual"
)

type cmd struct {
	str   string
	ready bool
	m     sync.RWMutex
}

var command cmd = cmd{}

// PastCmd is the ViewManager that logs past command.
type PastCmd struct {
	name string
}

// Input box for command.
type FullNodeInput struct {
	name string
	cmd  chan commands.Command
}

type Logger struct {
	name string
}

// Manual shows the usage text, read once when the gui is created.
type Manual struct {
	name string
	text string
}

func loadManual(name string, path string) (*Manual, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manual: %w", err)
	}
	return &Manual{name: name, text: string(dat)}, nil
}

func (pc *PastCmd) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom left corner.
	v, _ := g.SetView(pc.name, 1, maxY*2/3, maxX/3, maxY-6)
	v.Autoscroll = true
	v.Wrap = true

	command.m.Lock()
	defer command.m.Unlock()
	if command.ready {
		fmt.Fprintln(v, "> "+command.str)
	}
	command.ready = false

	return nil
}

func (i *FullNodeInput) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Bottom left.
	v, err := g.SetView(i.name, 1, maxY-5, maxX-1, maxY-1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Wrap = true
	v.Autoscroll = true
	v.Editor = i
	v.Editable = true
	return nil
}

func (l *Logger) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Right side.
	v, _ := g.SetView(l.name, maxX/3+1, 1, maxX-1, maxY-6)
	v.Autoscroll = true
	v.Wrap = true
	return nil
}

func (m *Manual) Layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// Top left corner.
	v, err := g.SetView(m.name, 1, 1, maxX/3, maxY*2/3-1)
	if err != gocui.ErrUnknownView {
		// Already filled, or a real error.
		return err
	}
	v.Autoscroll = true
	v.Wrap = true
	fmt.Fprintln(v, m.text)
	return nil
}

// Submit parses one line of input and records it in the past command view,
// with the parse error if any.
func Submit(line string) (commands.Command, error) {
	// Remove \n from string.
	s := strings.Replace(line, "\n", "", -1)
	op, err := commands.CreateCommand(s)
	command.m.Lock()
	command.str = s
	if err != nil {
		command.str = s + "\n" + err.Error()
	}
	command.ready = true
	command.m.Unlock()
	return op, err
}

func (i *FullNodeInput) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	switch {
	case key == gocui.KeyEnter:
		op, err := Submit(v.Buffer())
		if err == nil {
			// If a valid command, send to fullnode for processing. Never block
			// the gui on a busy node.
			go func() { i.cmd <- op }()
		}

		// Reset cursor.
		v.Clear()
		v.SetOrigin(0, 0)
		v.SetCursor(0, 0)

	case ch != 0 && mod == 0:
		v.EditWrite(ch)
	case key == gocui.KeySpace:
		v.EditWrite(' ')
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		v.EditDelete(true)
	}
}

// Lines a ViewWriter holds before Write blocks.
const VIEW_WRITER_BUFFER = 256

// ViewWriter is an io.Writer printing into a view of the gui, so that the
// node's logs end up in the logger view. gocui runs every Update in its own
// goroutine, so lines go through a queue and a single flusher that waits for
// each one to be drawn before handing over the next.
type ViewWriter struct {
	lines  chan string
	closed chan struct{}
	once   sync.Once
}

func NewViewWriter(g *gocui.Gui, view string) *ViewWriter {
	return newViewWriter(func(s string) {
		drawn := make(chan struct{})
		g.Update(func(g *gocui.Gui) error {
			defer close(drawn)
			v, err := g.View(view)
			if err != nil {
				// Not laid out yet, drop the line.
				return nil
			}
			fmt.Fprint(v, s)
			return nil
		})
		<-drawn
	})
}

func newViewWriter(flush func(string)) *ViewWriter {
	w := &ViewWriter{
		lines:  make(chan string, VIEW_WRITER_BUFFER),
		closed: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case s := <-w.lines:
				flush(s)
			case <-w.closed:
				return
			}
		}
	}()
	return w
}

func (w *ViewWriter) Write(p []byte) (int, error) {
	// p is reused by the caller once Write returns.
	s := string(p)
	select {
	case w.lines <- s:
	case <-w.closed:
	}
	return len(p), nil
}

func (w *ViewWriter) Sync() error {
	return nil
}

// Close stops the flusher. Lines still queued are dropped.
func (w *ViewWriter) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func SetFocus(name string) func(g *gocui.Gui) error {
	return func(g *gocui.Gui) error {
		_, err := g.SetCurrentView(name)
		return err
	}
}

// Create a GUI, using the command channel to pass command to fullnode.
func CreateGui(cmd chan commands.Command, manual_path string) (*gocui.Gui, error) {
	m, err := loadManual(MANUAL_VIEW, manual_path)
	if err != nil {
		return nil, err
	}
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	g.Cursor = true

	pc := &PastCmd{name: PAST_CMD_VIEW}
	l := &Logger{name: LOGGER_VIEW}
	focus := gocui.ManagerFunc(SetFocus(INPUT_VIEW))
	input := &FullNodeInput{name: INPUT_VIEW, cmd: cmd}
	g.SetManager(pc, input, l, m, focus)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		g.Close()
		return nil, err
	}

	return g, err
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
