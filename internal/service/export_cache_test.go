package service

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/edirooss/livesrc/internal/domain/catalog"
)

func TestExportCache(t *testing.T) {
	cat := catalog.New()
	cat.AddChannel("A", "x", "http://u/1", "", "")
	c := NewExportCache(zaptest.NewLogger(t), cat)

	body, hit := c.Get(FormatTxt)
	if hit || body != "A,#genre#\nx,http://u/1\n\n" {
		t.Fatalf("first Get() = (%q, %v)", body, hit)
	}
	if _, hit := c.Get(FormatTxt); !hit {
		t.Error("second Get() missed the cache")
	}
	if _, hit := c.Get(FormatM3U); hit {
		t.Error("m3u served from the txt entry")
	}

	cat.AddChannel("A", "x", "http://u/2", "", "")
	body, hit = c.Get(FormatTxt)
	if hit || body != "A,#genre#\nx,http://u/1\nx,http://u/2\n\n" {
		t.Errorf("Get() after change = (%q, %v)", body, hit)
	}

	c.Invalidate()
	if _, hit := c.Get(FormatTxt); hit {
		t.Error("Get() after Invalidate hit the cache")
	}
}
