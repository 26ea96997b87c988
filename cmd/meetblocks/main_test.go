package main

import (
	"errors"
	"flag"
	"fmt"
	"reflect"
	"testing"

	"meetblocks/internal/availability"
	"meetblocks/internal/config"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , ,b ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", config.ErrInvalidConfig), exitInvalid},
		{fmt.Errorf("wrap: %w", availability.ErrInvalidParams), exitInvalid},
		{errors.New("network down"), exitRuntime},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestApplyFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	conf := config.DefaultConfig()
	conf.MinUsers = 5
	conf.WindowSlots = 8
	conf.Sources = []config.SourceConfig{{URL: "https://example.test/?9-z", Name: "Old"}}
	conf.Output.Dir = "./from-file"

	var f flagConfig
	fs := flag.NewFlagSet("meetblocks", flag.ContinueOnError)
	registerFlags(fs, &f)
	if err := fs.Parse([]string{"-urls", "https://example.test/?1-a, https://example.test/?2-b", "-formats", "ics"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	applyFlags(fs, conf, f)

	wantSources := []config.SourceConfig{
		{URL: "https://example.test/?1-a"},
		{URL: "https://example.test/?2-b"},
	}
	if !reflect.DeepEqual(conf.Sources, wantSources) {
		t.Errorf("Sources = %v, want %v", conf.Sources, wantSources)
	}
	if !reflect.DeepEqual(conf.Output.Formats, []string{"ics"}) {
		t.Errorf("Output.Formats = %v, want [ics]", conf.Output.Formats)
	}

	// Unset flags keep the file values even though their defaults differ.
	if conf.MinUsers != 5 {
		t.Errorf("MinUsers = %d, want 5 from file", conf.MinUsers)
	}
	if conf.WindowSlots != 8 {
		t.Errorf("WindowSlots = %d, want 8 from file", conf.WindowSlots)
	}
	if conf.Output.Dir != "./from-file" {
		t.Errorf("Output.Dir = %q, want ./from-file", conf.Output.Dir)
	}
}

func TestApplyFlags_NoFlagsKeepsConfig(t *testing.T) {
	conf := config.DefaultConfig()
	conf.MinUsers = 5
	conf.Sources = []config.SourceConfig{{URL: "https://example.test/?9-z"}}
	want := *conf

	var f flagConfig
	fs := flag.NewFlagSet("meetblocks", flag.ContinueOnError)
	registerFlags(fs, &f)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	applyFlags(fs, conf, f)

	if !reflect.DeepEqual(*conf, want) {
		t.Errorf("applyFlags() with no flags = %+v, want %+v", *conf, want)
	}
}
