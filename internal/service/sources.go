package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/playlist"
	"github.com/edirooss/livesrc/pkg/urlutil"
)

// loadTxt downloads a grouped-format playlist into the catalog. Download
// failures are logged and skipped so one dead source never fails an update.
func (s *LiveService) loadTxt(ctx context.Context, src string, useIgnore bool) {
	text, err := s.fetchSource(ctx, src)
	if err != nil {
		s.log.Warn("load txt source failed", zap.String("url", src), zap.Error(err))
		return
	}
	if err := s.importTxt(strings.NewReader(text), useIgnore); err != nil {
		s.log.Warn("parse txt source failed", zap.String("url", src), zap.Error(err))
	}
}

// loadM3U downloads a tag-format playlist into the catalog.
func (s *LiveService) loadM3U(ctx context.Context, src string) {
	text, err := s.fetchSource(ctx, src)
	if err != nil {
		s.log.Warn("load m3u source failed", zap.String("url", src), zap.Error(err))
		return
	}
	entries := s.tables.ImportM3U(playlist.ParseM3U(text), relativeLogo)
	for _, e := range entries {
		s.catalog.AddChannel(e.Category, e.Name, e.URL, e.ID, e.Logo)
	}
	s.log.Info("m3u source loaded", zap.String("url", src), zap.Int("entries", len(entries)))
}

func (s *LiveService) fetchSource(ctx context.Context, src string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SourceTimeout)
	defer cancel()
	text, err := s.fetcher.FetchText(ctx, src, s.opts.MaxSourceBytes)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	return text, nil
}

func (s *LiveService) importTxt(r io.Reader, useIgnore bool) error {
	entries, err := playlist.ReadTxt(r)
	if err != nil {
		return fmt.Errorf("read txt: %w", err)
	}
	for _, e := range s.tables.ImportTxt(entries, useIgnore) {
		s.catalog.AddChannel(e.Category, e.Name, e.URL, "", "")
	}
	return nil
}

// relativeLogo strips scheme and host from a logo URL so the export's EPG
// domain is applied to it instead.
func relativeLogo(logo string) string {
	p := urlutil.Split(logo)
	if p.Host == "" {
		return logo
	}
	return p.Path
}
