package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inamate/visualdrag/internal/asset"
	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/engine"
	"github.com/inamate/visualdrag/internal/eventloop"
	"github.com/inamate/visualdrag/internal/geometry"
	"github.com/inamate/visualdrag/internal/typeid"
)

const (
	tickInterval = 25 * time.Millisecond
	inboxSize    = 64
	saveTimeout  = 10 * time.Second
)

var ErrUnknownMessage = errors.New("unknown message type")

// Loader returns the stored document of a canvas.
type Loader func(ctx context.Context, canvasID string) (*document.Document, error)

// Saver persists a document and reports its stored version and whether a
// new version was written.
type Saver func(ctx context.Context, canvasID string, doc *document.Document) (version int, saved bool, err error)

// Session is one editor attached to one canvas. All engine access happens
// on the session loop.
type Session struct {
	ID       string
	CanvasID string

	engine *engine.Engine
	loop   *eventloop.Loop
	saver  Saver
	send   func(*Message)

	savedVersion uint64
	cancel       context.CancelFunc
}

func NewSession(canvasID string, doc *document.Document, opts engine.Options, saver Saver, send func(*Message)) (*Session, error) {
	eng := engine.NewEngine(opts)
	if err := eng.Load(doc); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return &Session{
		ID:           typeid.NewSessionID(),
		CanvasID:     canvasID,
		engine:       eng,
		loop:         eventloop.New(inboxSize),
		saver:        saver,
		send:         send,
		savedVersion: eng.Version(),
	}, nil
}

// Start runs the session loop and its ticker until Close.
func (s *Session) Start(ctx context.Context, autosave time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop.Run(ctx)
	go s.tickLoop(ctx, autosave)
	s.Post(ctx, s.welcome)
}

func (s *Session) tickLoop(ctx context.Context, autosave time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var saveC <-chan time.Time
	if autosave > 0 {
		saveTicker := time.NewTicker(autosave)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	for {
		select {
		case <-ticker.C:
			s.Post(ctx, s.Tick)
		case <-saveC:
			s.Post(ctx, func() { s.autosave(ctx) })
		case <-ctx.Done():
			return
		}
	}
}

// Post queues fn on the session loop.
func (s *Session) Post(ctx context.Context, fn func()) {
	if err := s.loop.Post(ctx, fn); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, eventloop.ErrStopped) {
		slog.Warn("session post", "error", err, "session", s.ID)
	}
}

// Deliver queues an inbound message.
func (s *Session) Deliver(ctx context.Context, msg *Message) {
	s.Post(ctx, func() {
		if err := s.Handle(ctx, msg); err != nil {
			slog.Warn("message rejected", "error", err, "type", msg.Type, "session", s.ID)
			s.send(newMessage(TypeError, ErrorPayload{Message: err.Error()}))
		}
	})
}

// Close stops the loop and writes the final document.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.loop.Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_, err := s.save(ctx, s.engine.Save())
	return err
}

func (s *Session) welcome() {
	s.send(newMessage(TypeWelcome, WelcomePayload{
		SessionID: s.ID,
		CanvasID:  s.CanvasID,
		Palette:   s.engine.Palette(),
		Frame:     s.engine.Frame(),
	}))
}

// Handle applies one inbound message to the engine and sends the
// resulting frame and notices. It must run on the session loop.
func (s *Session) Handle(ctx context.Context, msg *Message) error {
	if err := s.dispatch(ctx, msg); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *Session) dispatch(ctx context.Context, msg *Message) error {
	e := s.engine
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp, TypeMenuOpen:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode pointer: %w", err)
		}
		pt := geometry.Point{X: p.X, Y: p.Y}
		switch msg.Type {
		case TypePointerDown:
			e.PointerDown(pt, p.Button, engine.Modifiers{Shift: p.Shift})
		case TypePointerMove:
			e.PointerMove(pt)
		case TypePointerUp:
			e.PointerUp(pt, p.Button)
		default:
			e.ContextMenu(pt)
		}

	case TypeMenuSelect:
		var p MenuSelectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode menu select: %w", err)
		}
		return e.MenuSelect(p.Action)

	case TypeAction:
		var p ActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode action: %w", err)
		}
		return s.action(p.Action)

	case TypeDrop:
		var p DropPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode drop: %w", err)
		}
		if _, err := e.DropTemplate(p.Template, geometry.Point{X: p.X, Y: p.Y}); err != nil {
			return err
		}

	case TypeProps:
		var p PropsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode props: %w", err)
		}
		edit, err := s.propertyEdit(p)
		if err != nil {
			return err
		}
		e.SetProperties(p.ID, edit)

	case TypeEvent:
		var p EventPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return e.AddEvent(p.ID, p.Event)

	case TypeCanvas:
		var size document.CanvasSize
		if err := json.Unmarshal(msg.Payload, &size); err != nil {
			return fmt.Errorf("decode canvas size: %w", err)
		}
		e.SetCanvasSize(size)

	case TypePreview:
		var p PreviewPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode preview: %w", err)
		}
		e.SetPreview(p.On)

	case TypeAddImage:
		var p ImagePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		if p.Width <= 0 || p.Height <= 0 || p.URL == "" {
			return fmt.Errorf("invalid image %q", p.ID)
		}
		idx := e.AddTemplate(asset.ImageTemplate(p.ID, p.URL, p.Name, p.Width, p.Height))
		s.send(newMessage(TypePalette, PalettePayload{Templates: e.Palette(), Added: idx}))

	case TypeSave:
		res, err := s.save(ctx, e.Save())
		if err != nil {
			return err
		}
		s.send(newMessage(TypeSaved, res))

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}

func (s *Session) action(name string) error {
	e := s.engine
	switch name {
	case ActionUndo:
		e.Undo()
	case ActionRedo:
		e.Redo()
	case ActionCopy:
		e.Copy()
	case ActionPaste:
		e.Paste(nil)
	case ActionDelete:
		e.Delete()
	case ActionTop:
		e.RaiseToTop()
	case ActionBottom:
		e.LowerToBottom()
	case ActionUp:
		e.RaiseOne()
	case ActionDown:
		e.LowerOne()
	case ActionCancel:
		e.Cancel()
	default:
		return fmt.Errorf("unknown action %q", name)
	}
	return nil
}

func (s *Session) propertyEdit(p PropsPayload) (engine.PropertyEdit, error) {
	edit := engine.PropertyEdit{Label: p.Label, Attrs: p.Attrs, Style: p.Style}
	if len(p.Props) == 0 {
		return edit, nil
	}
	el, ok := s.engine.State().Element(p.ID)
	if !ok {
		return edit, fmt.Errorf("element %d not found", p.ID)
	}
	props, err := document.DecodeProps(el.Kind, p.Props)
	if err != nil {
		return edit, fmt.Errorf("decode %s props: %w", el.Kind, err)
	}
	edit.Props = props
	return edit, nil
}

// Engine returns the session engine. Callers other than the session loop
// must not use it while the session is started.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Tick commits due debounced edits and sends a frame if anything changed.
func (s *Session) Tick() {
	before := s.engine.Version()
	s.engine.Tick()
	if s.engine.Version() != before {
		s.flush()
	}
}

func (s *Session) flush() {
	for _, n := range s.engine.Notices() {
		s.send(newMessage(TypeNotice, n))
	}
	s.send(newMessage(TypeFrame, s.engine.Frame()))
}

// Dirty reports whether committed state changed since the last save.
func (s *Session) Dirty() bool {
	return s.engine.Version() != s.savedVersion
}

// autosave writes the committed document without ending a gesture in
// progress.
func (s *Session) autosave(ctx context.Context) {
	if !s.Dirty() {
		return
	}
	res, err := s.save(ctx, s.engine.Document())
	if err != nil {
		slog.Error("autosave failed", "error", err, "canvas", s.CanvasID)
		return
	}
	if res.Saved {
		slog.Debug("autosaved", "canvas", s.CanvasID, "version", res.Version)
	}
}

func (s *Session) save(ctx context.Context, doc *document.Document) (SavedPayload, error) {
	version := s.engine.Version()
	v, saved, err := s.saver(ctx, s.CanvasID, doc)
	if err != nil {
		return SavedPayload{}, fmt.Errorf("save canvas %s: %w", s.CanvasID, err)
	}
	s.savedVersion = version
	return SavedPayload{Version: v, Saved: saved}, nil
}
