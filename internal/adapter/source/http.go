package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
)

var _ port.ProductsSource = (*HTTPSource)(nil)

const maxErrBody = 512

// An HTTPSource fetches the feed with a GET request.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		panic("source.NewHTTPSource: empty url") // develop mistake
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "HTTPSource.FetchProducts"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBody))
		return nil, fmt.Errorf(
			"%s: unexpected status %d: %s", op, res.StatusCode, body,
		)
	}

	ps, err := DecodeFeed(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}
