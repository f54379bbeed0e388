package source

import (
	"context"
	"fmt"
	"os"

	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
)

var _ port.ProductsSource = (*FileSource)(nil)

// A FileSource reads the feed from a file on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	if path == "" {
		panic("source.NewFileSource: empty path") // develop mistake
	}
	return &FileSource{path: path}
}

func (s *FileSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "FileSource.FetchProducts"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	ps, err := DecodeFeed(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, s.path, err)
	}
	return ps, nil
}
