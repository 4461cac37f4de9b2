package ui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Pause   key.Binding
	Back    key.Binding
	Forward key.Binding
	Restart key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Viz     key.Binding
	Video   key.Binding
	Loop    key.Binding
	Stats   key.Binding
	Quit    key.Binding
}

// newKeyMap disables the video binding for files without a video track,
// which also hides it from the help line.
func newKeyMap(hasVideo bool) keyMap {
	k := keyMap{
		Pause:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Back:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "seek")),
		Forward: key.NewBinding(key.WithKeys("right", "l")),
		Restart: key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("home", "restart")),
		VolUp:   key.NewBinding(key.WithKeys("up", "k", "+", "="), key.WithHelp("↑/↓", "volume")),
		VolDown: key.NewBinding(key.WithKeys("down", "j", "-")),
		Viz:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "viz")),
		Video:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "video")),
		Loop:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "loop")),
		Stats:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "stats")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	k.Video.SetEnabled(hasVideo)
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Back, k.VolUp, k.Restart, k.Viz, k.Video, k.Loop, k.Stats, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newHelp() help.Model {
	h := help.New()
	h.ShortSeparator = "  "
	h.Styles.ShortKey = helpKeyStyle
	h.Styles.ShortDesc = helpStyle
	h.Styles.ShortSeparator = helpStyle
	h.Styles.Ellipsis = helpStyle
	return h
}
