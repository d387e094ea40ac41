package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"myapi/internal/metrics"
)

const (
	DefaultQuality      = 80
	DefaultMaxBytes     = 10 << 20
	DefaultFetchTimeout = 15 * time.Second
)

type Options struct {
	Sizes        []int
	Quality      int
	MaxBytes     int64
	FetchTimeout time.Duration
	// HTTPClient is used by StoreFromURL. Defaults to a client with FetchTimeout.
	HTTPClient *http.Client
}

// Store derives a fixed set of resized WebP variants from source images.
type Store struct {
	backend  Backend
	sizes    []int
	quality  int
	maxBytes int64
	client   *http.Client
}

func NewStore(backend Backend, opts Options) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("image backend is required")
	}
	if len(opts.Sizes) == 0 {
		return nil, fmt.Errorf("at least one image size is required")
	}
	for _, size := range opts.Sizes {
		if size <= 0 {
			return nil, fmt.Errorf("image size must be > 0, got %d", size)
		}
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.FetchTimeout}
	}

	return &Store{
		backend:  backend,
		sizes:    slices.Clone(opts.Sizes),
		quality:  opts.Quality,
		maxBytes: opts.MaxBytes,
		client:   client,
	}, nil
}

func (s *Store) Sizes() []int {
	return slices.Clone(s.sizes)
}

func (s *Store) Backend() Backend {
	return s.backend
}

// Store writes one variant per configured size and returns the shared base
// filename. If any variant fails, the variants already written are removed.
func (s *Store) Store(ctx context.Context, data []byte) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}
	if _, err := checkSource(data); err != nil {
		return "", err
	}

	img, err := decodeImage(data)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := newBaseName()

	g, gctx := errgroup.WithContext(ctx)
	for _, size := range s.sizes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			encoded, err := renderVariant(img, size, s.quality)
			if err != nil {
				return fmt.Errorf("rendering %dpx variant: %w", size, err)
			}

			name := VariantName(size, base)
			if err := s.backend.Put(gctx, name, encoded); err != nil {
				return fmt.Errorf("writing variant %s: %w", name, err)
			}

			metrics.VariantDuration.WithLabelValues(strconv.Itoa(size)).Observe(time.Since(start).Seconds())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if cleanupErr := s.Delete(context.WithoutCancel(ctx), base); cleanupErr != nil {
			slog.Error("error removing partial image variants", "component", "images", "base", base, "error", cleanupErr)
		}
		return "", err
	}

	return base, nil
}

// StoreFromBase64 accepts a bare base64 payload or a data URI.
func (s *Store) StoreFromBase64(ctx context.Context, payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if idx := strings.IndexByte(payload, ','); idx != -1 {
		payload = payload[idx+1:]
	}
	if payload == "" {
		return "", ErrEmptyImage
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > s.maxBytes+3 {
		return "", ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", ErrInvalidBase64
		}
	}

	return s.Store(ctx, data)
}

func (s *Store) StoreFromURL(ctx context.Context, rawURL string) (string, error) {
	data, err := s.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return s.Store(ctx, data)
}

func (s *Store) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: unsupported url", ErrSourceUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrSourceUnavailable, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}

	return data, nil
}

// Delete removes every size of base. Missing variants are skipped and all
// per-size failures are returned together.
func (s *Store) Delete(ctx context.Context, base string) error {
	if !IsValidBaseName(base) {
		return ErrInvalidName
	}

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, size := range s.sizes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.backend.Remove(ctx, VariantName(size, base)); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errs
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
