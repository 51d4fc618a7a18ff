package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/visualdrag/internal/engine"
)

// ErrCanvasBusy is returned when a canvas already has an editor attached.
var ErrCanvasBusy = errors.New("canvas is already open in another session")

type HubOptions struct {
	Engine   engine.Options
	Autosave time.Duration
}

// Hub owns the open sessions, one per canvas.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session // canvasID -> session
	clients  map[string]*Client  // canvasID -> client

	loader Loader
	saver  Saver
	opts   HubOptions

	ctx        context.Context
	cancel     context.CancelFunc
	unregister chan *Client
	done       chan struct{}
}

func NewHub(loader Loader, saver Saver, opts HubOptions) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[string]*Session),
		clients:    make(map[string]*Client),
		loader:     loader,
		saver:      saver,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register loads the canvas and starts a session for client.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	h.mu.Lock()
	if _, busy := h.sessions[client.CanvasID]; busy {
		h.mu.Unlock()
		return ErrCanvasBusy
	}
	// Reserve the canvas while loading.
	h.sessions[client.CanvasID] = nil
	h.mu.Unlock()

	sess, err := h.open(ctx, client)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		delete(h.sessions, client.CanvasID)
		return err
	}
	h.sessions[client.CanvasID] = sess
	h.clients[client.CanvasID] = client
	client.session = sess
	sess.Start(h.ctx, h.opts.Autosave)

	slog.Info("session opened", "canvas", client.CanvasID, "session", sess.ID, "client", client.ClientID)
	return nil
}

func (h *Hub) open(ctx context.Context, client *Client) (*Session, error) {
	doc, err := h.loader(ctx, client.CanvasID)
	if err != nil {
		return nil, fmt.Errorf("load canvas %s: %w", client.CanvasID, err)
	}
	return NewSession(client.CanvasID, doc, h.opts.Engine, h.saver, client.Send)
}

// Unregister detaches client; its session is saved and closed.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.CanvasID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	sess := h.sessions[client.CanvasID]
	delete(h.clients, client.CanvasID)
	delete(h.sessions, client.CanvasID)
	h.mu.Unlock()

	// The session loop sends to the client; stop it before closing send.
	if err := sess.Close(); err != nil {
		slog.Error("save on close failed", "error", err, "canvas", client.CanvasID)
	}
	close(client.send)
	slog.Info("session closed", "canvas", client.CanvasID, "session", sess.ID)
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.sessions {
		if s != nil {
			n++
		}
	}
	return n
}

// Stop saves and closes every session, then stops Run.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
		delete(h.sessions, id)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			slog.Error("save on shutdown failed", "error", err, "canvas", s.CanvasID)
		}
	}
	slog.Info("hub stopped", "saved", len(sessions))
}
