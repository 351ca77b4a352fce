package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"docconsole/internal/core/domain"
)

// Client implements the file-staging interface over a directory tree: every
// stage is a subdirectory of the base path and relocation is an atomic
// rename. The transport behind the interface is replaceable; listing,
// fetching, and relocating are the only required operations.
type Client struct {
	basePath     string
	sourceStage  string
	archiveStage string
}

type Config struct {
	BasePath     string
	SourceStage  string
	ArchiveStage string
}

func New(cfg Config) (*Client, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./data/stages"
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create stage base dir: %w", err)
	}
	return &Client{
		basePath:     cfg.BasePath,
		sourceStage:  cfg.SourceStage,
		archiveStage: cfg.ArchiveStage,
	}, nil
}

func (c *Client) List(_ context.Context, stage string) ([]string, error) {
	dir, err := c.stageDir(stage)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, domain.WrapError(domain.ErrExternalCall, "list stage", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) Fetch(_ context.Context, stage, filename, destDir string) (string, error) {
	src, err := c.stageFile(stage, filename)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrNotFoundInStage, "fetch staged file",
				fmt.Errorf("%s missing from stage %s", filename, stage))
		}
		return "", domain.WrapError(domain.ErrExternalCall, "fetch staged file", err)
	}
	defer in.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create fetch dir: %w", err)
	}
	localPath := filepath.Join(destDir, filename)
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local copy: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copy staged file: %w", err)
	}
	return localPath, nil
}

func (c *Client) Relocate(_ context.Context, stage, filename string, dest domain.Destination) error {
	src, err := c.stageFile(stage, filename)
	if err != nil {
		return err
	}

	var destStage string
	switch dest {
	case domain.DestinationSource:
		destStage = c.sourceStage
	case domain.DestinationArchive:
		destStage = c.archiveStage
	default:
		return domain.WrapError(domain.ErrInvalidInput, "relocate staged file",
			fmt.Errorf("unknown destination %q", dest))
	}

	destDir := filepath.Join(c.basePath, destStage)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return domain.WrapError(domain.ErrExternalCall, "relocate staged file", err)
	}
	if err := os.Rename(src, filepath.Join(destDir, filename)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WrapError(domain.ErrNotFoundInStage, "relocate staged file",
				fmt.Errorf("%s missing from stage %s", filename, stage))
		}
		return domain.WrapError(domain.ErrExternalCall, "relocate staged file", err)
	}
	return nil
}

func (c *Client) stageDir(stage string) (string, error) {
	if stage == "" || filepath.Base(stage) != stage {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve stage",
			fmt.Errorf("invalid stage name %q", stage))
	}
	return filepath.Join(c.basePath, stage), nil
}

func (c *Client) stageFile(stage, filename string) (string, error) {
	dir, err := c.stageDir(stage)
	if err != nil {
		return "", err
	}
	if filename == "" || filepath.Base(filename) != filename {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve staged file",
			fmt.Errorf("invalid filename %q", filename))
	}
	return filepath.Join(dir, filename), nil
}
