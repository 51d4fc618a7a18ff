// Package canvas manages stored canvases: creation with an access key,
// token exchange, and saving or loading their documents.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/visualdrag/internal/auth"
	"github.com/inamate/visualdrag/internal/document"
	"github.com/inamate/visualdrag/internal/store"
	"github.com/inamate/visualdrag/internal/typeid"
)

var (
	ErrNotFound        = errors.New("canvas not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidDocument = errors.New("invalid document")
)

// Repository is the persistence the service needs; *store.Store
// implements it.
type Repository interface {
	CreateCanvas(ctx context.Context, c store.Canvas) (*store.Canvas, error)
	GetCanvas(ctx context.Context, id string) (*store.Canvas, error)
	ListCanvases(ctx context.Context) ([]store.Canvas, error)
	DeleteCanvas(ctx context.Context, id string) error
	SaveDocument(ctx context.Context, canvasID string, doc []byte) (*store.SavedDocument, bool, error)
	LatestDocument(ctx context.Context, canvasID string) (*store.SavedDocument, error)
}

type Service struct {
	repo      Repository
	auth      *auth.Service
	maxCanvas document.CanvasSize
}

func NewService(repo Repository, authSvc *auth.Service, maxCanvas document.CanvasSize) *Service {
	return &Service{repo: repo, auth: authSvc, maxCanvas: maxCanvas}
}

type Canvas struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Created is returned once, on creation. The access key is not stored
// and cannot be recovered.
type Created struct {
	Canvas    Canvas `json:"canvas"`
	AccessKey string `json:"accessKey"`
	Token     string `json:"token"`
}

type SaveResult struct {
	Version int  `json:"version"`
	Saved   bool `json:"saved"`
}

func (s *Service) Create(ctx context.Context, name string, size document.CanvasSize) (*Created, error) {
	if size.Width == 0 && size.Height == 0 {
		size = document.CanvasSize{Width: document.DefaultCanvasWidth, Height: document.DefaultCanvasHeight}
	}
	size = size.Clamp(s.maxCanvas.Width, s.maxCanvas.Height)

	key, hash, err := s.auth.NewAccessKey()
	if err != nil {
		return nil, err
	}

	c, err := s.repo.CreateCanvas(ctx, store.Canvas{
		ID:         typeid.NewCanvasID(),
		Name:       name,
		AccessHash: hash,
		Width:      size.Width,
		Height:     size.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}

	// Seed empty document
	empty := document.NewEmptyDocument()
	empty.Canvas = size
	if _, err := s.save(ctx, c.ID, empty); err != nil {
		return nil, fmt.Errorf("seed document: %w", err)
	}

	token, err := s.auth.IssueToken(c.ID)
	if err != nil {
		return nil, err
	}

	return &Created{Canvas: toCanvas(c), AccessKey: key, Token: token}, nil
}

func (s *Service) Get(ctx context.Context, canvasID string) (*Canvas, error) {
	c, err := s.repo.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, mapStoreError(err, "get canvas")
	}
	out := toCanvas(c)
	return &out, nil
}

func (s *Service) List(ctx context.Context) ([]Canvas, error) {
	cs, err := s.repo.ListCanvases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	out := make([]Canvas, len(cs))
	for i := range cs {
		out[i] = toCanvas(&cs[i])
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, canvasID string) error {
	if err := s.repo.DeleteCanvas(ctx, canvasID); err != nil {
		return mapStoreError(err, "delete canvas")
	}
	return nil
}

// Token exchanges the canvas access key for a JWT.
func (s *Service) Token(ctx context.Context, canvasID, key string) (string, error) {
	c, err := s.repo.GetCanvas(ctx, canvasID)
	if err != nil {
		return "", mapStoreError(err, "get canvas")
	}
	if err := s.auth.CheckKey(c.AccessHash, key); err != nil {
		return "", ErrForbidden
	}
	return s.auth.IssueToken(c.ID)
}

// LoadDocument returns the latest saved document. A canvas with no saved
// document yields an empty one of the canvas' size.
func (s *Service) LoadDocument(ctx context.Context, canvasID string) (*document.Document, error) {
	saved, err := s.repo.LatestDocument(ctx, canvasID)
	if err == nil {
		doc, err := document.Decode(saved.Document)
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load document: %w", err)
	}

	c, err := s.repo.GetCanvas(ctx, canvasID)
	if err != nil {
		return nil, mapStoreError(err, "get canvas")
	}
	doc := document.NewEmptyDocument()
	doc.Canvas = document.CanvasSize{Width: c.Width, Height: c.Height}
	return doc, nil
}

func (s *Service) SaveDocument(ctx context.Context, canvasID string, doc *document.Document) (*SaveResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	doc.Canvas = doc.Canvas.Clamp(s.maxCanvas.Width, s.maxCanvas.Height)
	return s.save(ctx, canvasID, doc)
}

func (s *Service) save(ctx context.Context, canvasID string, doc *document.Document) (*SaveResult, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	saved, created, err := s.repo.SaveDocument(ctx, canvasID, data)
	if err != nil {
		return nil, mapStoreError(err, "save document")
	}
	return &SaveResult{Version: saved.Version, Saved: created}, nil
}

func mapStoreError(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func toCanvas(c *store.Canvas) Canvas {
	return Canvas{
		ID:        c.ID,
		Name:      c.Name,
		Width:     c.Width,
		Height:    c.Height,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
