// surface.go - Terminal surface widget rendering the gopyte emulator
// into a TextGrid. All methods run on the application loop; the backend
// relay is the only caller of FeedOutput/Repaint.
package main

import (
	"image/color"
	"log"
	"runtime"
	"strings"

	"github.com/mattn/go-runewidth"
	gopyte "github.com/scottpeterman/gopyte/gopyte"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"shelldeck/internal/term"
)

var (
	_ term.Surface      = (*TerminalSurface)(nil)
	_ fyne.Focusable    = (*TerminalSurface)(nil)
	_ fyne.Scrollable   = (*TerminalSurface)(nil)
	_ fyne.Shortcutable = (*TerminalSurface)(nil)
)

// TerminalSurface is the visual terminal for one tab
type TerminalSurface struct {
	widget.BaseWidget
	fyne.ShortcutHandler

	screen *gopyte.WideCharScreen
	stream *gopyte.Stream
	grid   *widget.TextGrid

	fontSize   float32
	charWidth  float32
	charHeight float32
	cols       int
	rows       int
	dark       bool
	hasFocus   bool

	// Non-empty while the surface shows a static notice instead of
	// emulator content
	message string

	input    func([]byte)
	onResize func()

	lastWidth  float32
	lastHeight float32
}

// NewTerminalSurface creates a surface with the given initial grid
func NewTerminalSurface(cols, rows, scrollback int, dark bool, fontSize float32) *TerminalSurface {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	if scrollback < 100 {
		scrollback = 1000
	}

	t := &TerminalSurface{
		fontSize: fontSize,
		cols:     cols,
		rows:     rows,
		dark:     dark,
	}
	t.calculateCharDimensions()

	t.screen = gopyte.NewWideCharScreen(cols, rows, scrollback)
	t.stream = gopyte.NewStream(t.screen, false)

	t.grid = widget.NewTextGrid()
	t.grid.ShowLineNumbers = false
	t.grid.ShowWhitespace = false

	t.ExtendBaseWidget(t)
	log.Printf("Created terminal surface %dx%d scrollback=%d", cols, rows, scrollback)
	return t
}

// SetInput registers where typed bytes go
func (t *TerminalSurface) SetInput(fn func([]byte)) { t.input = fn }

// SetOnResize registers the hook fired when the widget's pixel size changes
func (t *TerminalSurface) SetOnResize(fn func()) { t.onResize = fn }

func (t *TerminalSurface) writeInput(p []byte) {
	if t.input != nil && t.message == "" {
		t.input(p)
	}
}

// FeedOutput applies raw process output to the emulator
func (t *TerminalSurface) FeedOutput(p []byte) {
	if t.message != "" {
		return
	}
	t.stream.Feed(string(p))
}

// Repaint redraws the TextGrid from emulator state
func (t *TerminalSurface) Repaint() {
	if t.message != "" {
		return
	}
	t.render()
}

// SyncLayout forces the widget to recompute its layout
func (t *TerminalSurface) SyncLayout() {
	t.Refresh()
}

// RefreshSize recomputes the character grid from the current pixel size
// and resizes the emulator when it changed
func (t *TerminalSurface) RefreshSize() {
	size := t.Size()
	cols, rows := t.gridForSize(size.Width, size.Height)
	if cols == t.cols && rows == t.rows {
		return
	}
	log.Printf("Terminal grid %dx%d -> %dx%d", t.cols, t.rows, cols, rows)
	t.cols, t.rows = cols, rows
	t.screen.Resize(cols, rows)
	t.screen.InvalidateCache()
}

// ClampScroll pulls a stale scrollback position back inside the buffer
func (t *TerminalSurface) ClampScroll() {
	if t.screen.IsViewingHistory() && t.screen.GetHistoryPos() > t.screen.GetMaxHistoryPos() {
		t.screen.ScrollToBottom()
	}
}

// GridSize reports the current character grid
func (t *TerminalSurface) GridSize() (int, int) {
	return t.cols, t.rows
}

// Clear wipes the emulator screen
func (t *TerminalSurface) Clear() {
	t.stream.Feed("\x1b[2J\x1b[H")
	t.render()
}

// ApplyTheme updates presentation and repaints
func (t *TerminalSurface) ApplyTheme(th term.Theme) {
	t.dark = th.Dark
	if th.FontSize > 0 {
		t.fontSize = th.FontSize
		t.calculateCharDimensions()
	}
	if t.message == "" {
		t.render()
	}
}

// ShowMessage replaces the surface content with a static notice
func (t *TerminalSurface) ShowMessage(msg string) {
	t.message = msg
	t.grid.SetText(msg)
	t.grid.Refresh()
}

// ClearMessage returns the surface to emulator content
func (t *TerminalSurface) ClearMessage() {
	t.message = ""
	t.render()
}

// render paints the visible emulator lines, cursor and colors
func (t *TerminalSurface) render() {
	lines := t.screen.GetDisplay()
	attrs := t.screen.GetAttributes()

	visible := make([]string, len(lines))
	for i, line := range lines {
		visible[i] = t.padLine(line)
	}

	if !t.screen.IsViewingHistory() {
		cursorX, cursorY := t.screen.GetCursor()
		if cursorY >= 0 && cursorY < len(visible) && cursorX >= 0 && cursorX < t.cols {
			placeCursor(&visible[cursorY], cursorX, t.cols)
		}
	}

	t.grid.SetText(strings.Join(visible, "\n"))
	t.applyAttributes(visible, attrs)
	t.grid.Refresh()
}

// padLine pads or truncates a line to the column count, measuring wide
// glyphs by their display width
func (t *TerminalSurface) padLine(line string) string {
	w := runewidth.StringWidth(line)
	if w < t.cols {
		return line + strings.Repeat(" ", t.cols-w)
	}
	if w > t.cols {
		return runewidth.Truncate(line, t.cols, "")
	}
	return line
}

func placeCursor(line *string, cursorX, cols int) {
	runes := []rune(*line)
	if cursorX < len(runes) {
		runes[cursorX] = '█'
		*line = string(runes)
	} else if cursorX < cols {
		*line = *line + strings.Repeat(" ", cursorX-len(runes)) + "█"
	}
}

func (t *TerminalSurface) applyAttributes(lines []string, attrs [][]gopyte.Attributes) {
	if len(t.grid.Rows) == 0 || len(attrs) == 0 {
		return
	}

	for rowIdx, line := range lines {
		if rowIdx >= len(t.grid.Rows) || rowIdx >= len(attrs) {
			break
		}
		row := t.grid.Rows[rowIdx]
		lineAttrs := attrs[rowIdx]

		for charIdx, char := range []rune(line) {
			if charIdx >= len(row.Cells) || charIdx >= len(lineAttrs) {
				break
			}
			attr := lineAttrs[charIdx]

			if row.Cells[charIdx].Style == nil {
				row.Cells[charIdx].Style = &widget.CustomTextGridStyle{}
			}
			style := row.Cells[charIdx].Style.(*widget.CustomTextGridStyle)

			if fg := t.mapColor(attr.Fg); fg != nil {
				style.FGColor = fg
			}
			if bg := t.mapColor(attr.Bg); bg != nil {
				style.BGColor = bg
			}
			if attr.Bold {
				if bright := brighten(style.FGColor); bright != nil {
					style.FGColor = bright
				}
			}
			row.Cells[charIdx].Rune = char
		}
	}
}

func (t *TerminalSurface) mapColor(name string) color.Color {
	if name == "" || name == "default" {
		return nil
	}
	if c, ok := colorMappings[name]; ok {
		return c
	}
	if strings.HasPrefix(name, "#") {
		return ParseHexColor(name)
	}
	switch name {
	case "brown":
		return colorMappings["yellow"]
	default:
		fg, _ := terminalColors(t.dark)
		return fg
	}
}

func brighten(c color.Color) color.Color {
	if c == nil {
		return nil
	}
	r, g, b, a := c.RGBA()
	lift := func(v uint32) uint8 {
		v8 := uint8(v >> 8)
		if v8 > 255-40 {
			return 255
		}
		return v8 + 40
	}
	return color.RGBA{lift(r), lift(g), lift(b), uint8(a >> 8)}
}

// gridForSize converts a pixel size to a character grid
func (t *TerminalSurface) gridForSize(width, height float32) (cols, rows int) {
	if t.charWidth <= 0 || t.charHeight <= 0 {
		return t.cols, t.rows
	}
	cols = int(width / t.charWidth)
	rows = int(height / t.charHeight)
	if cols < 20 {
		cols = 20
	}
	if rows < 5 {
		rows = 5
	}
	return cols, rows
}

func (t *TerminalSurface) calculateCharDimensions() {
	switch runtime.GOOS {
	case "windows":
		t.charWidth = t.fontSize * 0.58
		t.charHeight = t.fontSize * 1.25
	case "darwin":
		t.charWidth = t.fontSize * 0.55
		t.charHeight = t.fontSize * 1.15
	default:
		t.charWidth = t.fontSize * 0.56
		t.charHeight = t.fontSize * 1.22
	}
}

// Keyboard handling

func (t *TerminalSurface) FocusGained() { t.hasFocus = true }
func (t *TerminalSurface) FocusLost()   { t.hasFocus = false }

// AcceptsTab routes Tab key presses to the terminal instead of focus traversal
func (t *TerminalSurface) AcceptsTab() bool { return true }

func (t *TerminalSurface) TypedRune(r rune) {
	t.writeInput([]byte(string(r)))
}

func (t *TerminalSurface) TypedKey(event *fyne.KeyEvent) {
	var seq []byte
	switch event.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		seq = []byte{'\r'}
	case fyne.KeyBackspace:
		seq = []byte{0x7f}
	case fyne.KeyTab:
		seq = []byte{'\t'}
	case fyne.KeyEscape:
		seq = []byte{0x1b}
	case fyne.KeyUp:
		seq = []byte("\x1b[A")
	case fyne.KeyDown:
		seq = []byte("\x1b[B")
	case fyne.KeyRight:
		seq = []byte("\x1b[C")
	case fyne.KeyLeft:
		seq = []byte("\x1b[D")
	case fyne.KeyHome:
		seq = []byte("\x1b[H")
	case fyne.KeyEnd:
		seq = []byte("\x1b[F")
	case fyne.KeyPageUp:
		seq = []byte("\x1b[5~")
	case fyne.KeyPageDown:
		seq = []byte("\x1b[6~")
	case fyne.KeyDelete:
		seq = []byte("\x1b[3~")
	case fyne.KeyInsert:
		seq = []byte("\x1b[2~")
	case fyne.KeyF1:
		seq = []byte("\x1bOP")
	case fyne.KeyF2:
		seq = []byte("\x1bOQ")
	case fyne.KeyF3:
		seq = []byte("\x1bOR")
	case fyne.KeyF4:
		seq = []byte("\x1bOS")
	case fyne.KeyF5:
		seq = []byte("\x1b[15~")
	case fyne.KeyF6:
		seq = []byte("\x1b[17~")
	case fyne.KeyF7:
		seq = []byte("\x1b[18~")
	case fyne.KeyF8:
		seq = []byte("\x1b[19~")
	case fyne.KeyF9:
		seq = []byte("\x1b[20~")
	case fyne.KeyF10:
		seq = []byte("\x1b[21~")
	case fyne.KeyF11:
		seq = []byte("\x1b[23~")
	case fyne.KeyF12:
		seq = []byte("\x1b[24~")
	}
	if len(seq) > 0 {
		t.writeInput(seq)
	}
}

func (t *TerminalSurface) TypedShortcut(shortcut fyne.Shortcut) {
	if custom, ok := shortcut.(*desktop.CustomShortcut); ok {
		if custom.Modifier&fyne.KeyModifierAlt != 0 {
			if ch := keyChar(custom.KeyName); ch != 0 {
				t.writeInput([]byte{0x1b, ch})
				return
			}
		}
		if custom.Modifier&fyne.KeyModifierControl != 0 {
			if cb := controlByte(custom.KeyName); cb != 0 {
				t.writeInput([]byte{cb})
				return
			}
		}
	}

	switch sc := shortcut.(type) {
	case *fyne.ShortcutCopy:
		// No selection model: Ctrl+C always interrupts
		t.writeInput([]byte{0x03})
	case *fyne.ShortcutPaste:
		if sc.Clipboard != nil {
			if content := sc.Clipboard.Content(); content != "" {
				t.writeInput([]byte(content))
			}
		}
	default:
		t.ShortcutHandler.TypedShortcut(shortcut)
	}
}

// keyChar maps single-letter/digit key names to their lowercase byte
func keyChar(name fyne.KeyName) byte {
	s := string(name)
	if len(s) != 1 {
		return 0
	}
	c := s[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 'a'
	case c >= '0' && c <= '9':
		return c
	}
	return 0
}

// controlByte maps a letter key to its control code (Ctrl+A = 0x01)
func controlByte(name fyne.KeyName) byte {
	s := string(name)
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return s[0] - 'A' + 1
	}
	return 0
}

// Scrolled pages through scrollback with the mouse wheel
func (t *TerminalSurface) Scrolled(event *fyne.ScrollEvent) {
	if t.message != "" {
		return
	}
	const lines = 3
	if event.Scrolled.DY > 0 {
		t.screen.ScrollUp(lines)
	} else if event.Scrolled.DY < 0 {
		t.screen.ScrollDown(lines)
	}
	t.render()
}

// Renderer

func (t *TerminalSurface) CreateRenderer() fyne.WidgetRenderer {
	return &terminalSurfaceRenderer{surface: t}
}

type terminalSurfaceRenderer struct {
	surface *TerminalSurface
}

func (r *terminalSurfaceRenderer) Layout(size fyne.Size) {
	t := r.surface
	t.grid.Resize(size)

	if size.Width != t.lastWidth || size.Height != t.lastHeight {
		t.lastWidth = size.Width
		t.lastHeight = size.Height
		if t.onResize != nil {
			t.onResize()
		}
	}
}

func (r *terminalSurfaceRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 200)
}

func (r *terminalSurfaceRenderer) Refresh() {
	r.surface.grid.Refresh()
}

func (r *terminalSurfaceRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.surface.grid}
}

func (r *terminalSurfaceRenderer) Destroy() {}
