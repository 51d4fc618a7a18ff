package live

import (
	"encoding/json"

	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/engine"
)

type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Input (client → server)
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeMenuOpen    = "menu.open"
	TypeMenuSelect  = "menu.select"
	TypeAction      = "action"
	TypeDrop        = "palette.drop"
	TypeProps       = "element.props"
	TypeEvent       = "element.event"
	TypeCanvas      = "canvas.size"
	TypePreview     = "preview"
	TypeSave        = "save"
	TypeAddImage    = "palette.image"

	// Output (server → client)
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypePalette = "palette"
	TypeNotice  = "notice"
	TypeSaved   = "saved"
	TypeError   = "error"
)

// Keyboard and toolbar actions carried by TypeAction.
const (
	ActionUndo   = "undo"
	ActionRedo   = "redo"
	ActionCopy   = "copy"
	ActionPaste  = "paste"
	ActionDelete = "delete"
	ActionTop    = "top"
	ActionBottom = "bottom"
	ActionUp     = "up"
	ActionDown   = "down"
	ActionCancel = "cancel"
)

type PointerPayload struct {
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Button engine.Button `json:"button"`
	Shift  bool          `json:"shift,omitempty"`
}

type MenuSelectPayload struct {
	Action engine.MenuAction `json:"action"`
}

type ActionPayload struct {
	Action string `json:"action"`
}

type DropPayload struct {
	Template int     `json:"template"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// PropsPayload is a property panel write. Props is decoded against the
// kind of the target element.
type PropsPayload struct {
	ID    int                 `json:"id"`
	Label *string             `json:"label,omitempty"`
	Props json.RawMessage     `json:"props,omitempty"`
	Attrs map[string]any      `json:"attrs,omitempty"`
	Style document.StylePatch `json:"style"`
}

type EventPayload struct {
	ID    int            `json:"id"`
	Event document.Event `json:"event"`
}

// ImagePayload announces an uploaded asset to add to the palette.
type ImagePayload struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PalettePayload struct {
	Templates []document.Template `json:"templates"`
	Added     int                 `json:"added"`
}

type PreviewPayload struct {
	On bool `json:"on"`
}

type WelcomePayload struct {
	SessionID string              `json:"sessionId"`
	CanvasID  string              `json:"canvasId"`
	Palette   []document.Template `json:"palette"`
	Frame     engine.Frame        `json:"frame"`
}

type SavedPayload struct {
	Version int  `json:"version"`
	Saved   bool `json:"saved"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return &Message{Type: typ, Payload: data}
}
