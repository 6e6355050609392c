package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/merger"
	"github.com/edirooss/livesrc/internal/playlist"
)

// ConvertTxt renders grouped-format text as a sorted tag-format playlist.
func (s *LiveService) ConvertTxt(text string) (string, error) {
	cat, err := s.txtCatalog(text)
	if err != nil {
		return "", fmt.Errorf("convert txt: %w", err)
	}
	return cat.ToM3UString(), nil
}

// ConvertM3U renders tag-format text as a sorted grouped-format playlist.
func (s *LiveService) ConvertM3U(text string) (string, error) {
	cat, err := s.m3uCatalog(text)
	if err != nil {
		return "", fmt.Errorf("convert m3u: %w", err)
	}
	return cat.ToTxtString(), nil
}

// SortTxt reorders grouped-format text.
func (s *LiveService) SortTxt(text string) (string, error) {
	cat, err := s.txtCatalog(text)
	if err != nil {
		return "", fmt.Errorf("sort txt: %w", err)
	}
	return cat.ToTxtString(), nil
}

// SortM3U reorders tag-format text.
func (s *LiveService) SortM3U(text string) (string, error) {
	cat, err := s.m3uCatalog(text)
	if err != nil {
		return "", fmt.Errorf("sort m3u: %w", err)
	}
	return cat.ToM3UString(), nil
}

// Merge keeps, per channel, only the mirrors on the topN most popular hosts
// of the posted grouped-format text.
func (s *LiveService) Merge(text string, topN int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("merge: %w", ErrEmptyInput)
	}
	if topN < 1 || topN > 10 {
		return "", invalid("top_n must be within 1..10")
	}

	m := merger.New(s.tables.Assign(playlist.ParseTxt(text)), merger.Policy{MaxURLsPerChannel: s.opts.MergeMaxURLs})
	hosts := m.FindTopHosts(topN)
	s.log.Debug("merge hosts selected", zap.Any("hosts", hosts))
	return m.FormatOutput(), nil
}

// txtCatalog loads grouped-format text into a private catalog. Entries keep
// their name as written as id; names are canonicalized.
func (s *LiveService) txtCatalog(text string) (*catalog.Catalog, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	cat := newScratchCatalog()
	for _, e := range s.tables.Rename(playlist.ParseTxt(text)) {
		cat.AddChannel(e.Category, e.Name, e.URL, e.ID, e.Logo)
	}
	cat.Sort()
	return cat, nil
}

func (s *LiveService) m3uCatalog(text string) (*catalog.Catalog, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	cat := newScratchCatalog()
	for _, e := range playlist.ParseM3U(text) {
		cat.AddChannel(e.Category, s.tables.Channel(e.Name), e.URL, e.ID, e.Logo)
	}
	cat.Sort()
	return cat, nil
}

func newScratchCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.SetEPG(catalog.EPG{ShowLogo: true})
	return cat
}
