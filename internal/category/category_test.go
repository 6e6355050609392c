package category

import (
	"errors"
	"reflect"
	"testing"

	"github.com/edirooss/livesrc/internal/playlist"
)

func loadTables(t *testing.T) *Tables {
	t.Helper()
	tables, err := Load("testdata/categories.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tables
}

func TestParse_MissingSection(t *testing.T) {
	_, err := Parse([]byte("category_map: {}\nchannel_map: {}\n"))
	if !errors.Is(err, ErrMissingSection) {
		t.Fatalf("err = %v, expected ErrMissingSection", err)
	}
}

func TestLookups(t *testing.T) {
	tables := loadTables(t)

	if got := tables.Category("央视"); got != "央视频道" {
		t.Errorf("Category(央视) = %q", got)
	}
	if got := tables.Category("体育"); got != "体育" {
		t.Errorf("Category(体育) = %q", got)
	}
	if got := tables.Channel("CCTV1频道"); got != "CCTV1综合" {
		t.Errorf("Channel(CCTV1频道) = %q", got)
	}
	if got := tables.ChannelID("CCTV1综合"); got != "cctv1" {
		t.Errorf("ChannelID = %q", got)
	}
	if !tables.IsIgnore("港澳频道") || tables.IsIgnore("央视频道") {
		t.Error("IsIgnore mismatch")
	}
	if !tables.Exists("港澳频道") || tables.Exists("体育") {
		t.Error("Exists mismatch")
	}
	if !tables.ChangeLogo("卫视频道") || tables.ChangeLogo("央视频道") {
		t.Error("ChangeLogo mismatch")
	}
}

func TestNilTables(t *testing.T) {
	var tables *Tables
	if tables.Category("x") != "x" || tables.Channel("x频道") != "x" || tables.ChannelID("x") != "x" {
		t.Error("nil tables must map names to themselves")
	}
	if tables.IsIgnore("x") || !tables.Exists("x") || tables.Lookup("a", "b") != nil {
		t.Error("nil tables must accept everything")
	}
}

func TestIsExclude(t *testing.T) {
	tables := loadTables(t)
	tests := []struct {
		channel  string
		category string
		expected bool
	}{
		{"CCTV1综合", "whatever", false}, // listed channel
		{"CCTV9纪录", "央视频道", true},      // wildcard exclude
		{"购物卫视", "卫视频道", true},         // explicit exclude
		{"湖南卫视", "卫视频道", false},
		{"随便", "体育", false}, // falls back to 未分类组
	}
	for _, tt := range tests {
		def := tables.Lookup(tt.channel, tt.category)
		if got := IsExclude(def, tt.channel); got != tt.expected {
			t.Errorf("IsExclude(%q in %q) = %v, expected %v", tt.channel, tt.category, got, tt.expected)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"央视频道", "央视频道"},
		{"📺央视频道 ", "央视频道"},
		{"  卫视　频道 ", "卫视 频道"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.expected {
			t.Errorf("Clean(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestImportTxt(t *testing.T) {
	tables := loadTables(t)
	in := []playlist.Entry{
		{Category: "", Name: "orphan", URL: "u0"},
		{Category: "央视", Name: "CCTV1", URL: "u1"},
		{Category: "港澳频道", Name: "TVB", URL: "u2"},
		{Category: "体育", Name: "x", URL: "u3"},
	}

	got := tables.ImportTxt(in, true)
	expected := []playlist.Entry{{Category: "央视频道", Name: "CCTV1综合", URL: "u1"}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("ImportTxt(useIgnore) = %+v", got)
	}

	if got := tables.ImportTxt(in, false); len(got) != 2 {
		t.Errorf("ImportTxt() kept %d entries, expected 2", len(got))
	}
}

func TestImportM3U(t *testing.T) {
	tables := loadTables(t)
	in := []playlist.Entry{
		{Category: "央视", Name: "CCTV1", URL: "u1", ID: "CCTV1综合", Logo: "a.png"},
		{Category: "卫视", Name: "湖南卫视", URL: "u2", Logo: "b.png"},
		{Category: "港澳频道", Name: "TVB", URL: "u3"},
	}
	got := tables.ImportM3U(in, func(l string) string { return "/logo/" + l })
	expected := []playlist.Entry{
		{Category: "央视频道", Name: "CCTV1综合", URL: "u1", ID: "cctv1", Logo: "a.png"},
		{Category: "卫视频道", Name: "湖南卫视", URL: "u2", Logo: "/logo/b.png"},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("ImportM3U() = %+v, expected %+v", got, expected)
	}
}

func TestAssign(t *testing.T) {
	tables := loadTables(t)
	in := []playlist.Entry{
		{Category: "别名", Name: "CCTV1综合", URL: "u1"},
		{Category: "央视", Name: "CCTV9纪录", URL: "u2"},
		{Category: "卫视", Name: "湖南卫视", URL: "u3"},
		{Category: "体育", Name: "五星体育", URL: "u4"},
	}
	got := tables.Assign(in)
	expected := []playlist.Entry{
		{Category: "央视频道", Name: "CCTV1综合", URL: "u1"},
		{Category: "卫视频道", Name: "湖南卫视", URL: "u3"},
		{Category: "未分类组", Name: "五星体育", URL: "u4"},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Assign() = %+v, expected %+v", got, expected)
	}
}
