package usecase

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"docconsole/internal/core/domain"
	"docconsole/internal/core/ports"
)

// Preview is an open, locally staged PDF.
type Preview struct {
	ID       string `json:"id"`
	Session  string `json:"session"`
	Stage    string `json:"stage"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`

	localPath string
	dir       string
}

// PreviewService stages remote PDFs into a scratch directory and serves
// page-indexed rendering. Each session holds at most one open document;
// opening another one releases and deletes the previous copy. Scratch
// directories are handle-scoped, so concurrent sessions on one host never
// collide on file names.
type PreviewService struct {
	stage    ports.StageClient
	renderer ports.PageRenderer
	scratch  string
	maxBytes int64

	mu        sync.Mutex
	byID      map[string]*Preview
	bySession map[string]string
}

// NewPreviewService builds the preview manager. maxBytes caps the size of a
// staged document; zero disables the cap.
func NewPreviewService(stage ports.StageClient, renderer ports.PageRenderer, scratchPath string, maxBytes int64) *PreviewService {
	return &PreviewService{
		stage:     stage,
		renderer:  renderer,
		scratch:   scratchPath,
		maxBytes:  maxBytes,
		byID:      make(map[string]*Preview),
		bySession: make(map[string]string),
	}
}

func (s *PreviewService) Open(ctx context.Context, session, stageName, filename string) (*Preview, error) {
	filename = path.Base(filename)
	if session == "" || filename == "" || filename == "." {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open preview",
			fmt.Errorf("session and filename are required"))
	}

	id := uuid.NewString()
	dir := filepath.Join(s.scratch, id)
	localPath, err := s.stage.Fetch(ctx, stageName, filename, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	if s.maxBytes > 0 {
		info, err := os.Stat(localPath)
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("stat staged file: %w", err)
		}
		if info.Size() > s.maxBytes {
			_ = os.RemoveAll(dir)
			return nil, domain.WrapError(domain.ErrInvalidInput, "open preview",
				fmt.Errorf("file is %d bytes, cap is %d", info.Size(), s.maxBytes))
		}
	}

	pages, err := s.renderer.PageCount(localPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	preview := &Preview{
		ID:        id,
		Session:   session,
		Stage:     stageName,
		Filename:  filename,
		Pages:     pages,
		localPath: localPath,
		dir:       dir,
	}

	s.mu.Lock()
	previous := s.bySession[session]
	s.byID[id] = preview
	s.bySession[session] = id
	s.mu.Unlock()

	if previous != "" {
		// One open document per session.
		_ = s.Close(previous)
	}
	return preview, nil
}

func (s *PreviewService) Get(id string) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	preview, ok := s.byID[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrPreviewClosed, "get preview",
			fmt.Errorf("preview %s", id))
	}
	return preview, nil
}

func (s *PreviewService) RenderPage(ctx context.Context, id string, index int) ([]byte, error) {
	preview, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPage(ctx, preview.localPath, index)
}

func (s *PreviewService) PageText(ctx context.Context, id string, index int) (string, error) {
	preview, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return s.renderer.PageText(ctx, preview.localPath, index)
}

// Close releases a preview and deletes its staged copy. Closing an unknown
// or already-closed handle is a no-op.
func (s *PreviewService) Close(id string) error {
	s.mu.Lock()
	preview, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
		if s.bySession[preview.Session] == id {
			delete(s.bySession, preview.Session)
		}
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.RemoveAll(preview.dir); err != nil {
		return fmt.Errorf("remove preview scratch: %w", err)
	}
	return nil
}

// CloseAll discards every open preview; used on shutdown so the scratch
// area stays disposable between sessions.
func (s *PreviewService) CloseAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Close(id)
	}
}
