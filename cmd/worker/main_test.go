package main

import (
	"testing"

	"github.com/nanonyme/nanobot/internal/config"
)

func TestToPluginDescriptors_MissingEnabledDefaultsTrue(t *testing.T) {
	out := toPluginDescriptors([]config.PluginDescriptor{
		{Name: "title", Module: "title"},
	})
	if len(out) != 1 || !out[0].Enabled {
		t.Fatalf("expected missing enabled to default true, got %+v", out)
	}
}

func TestToPluginDescriptors_ExplicitlyDisabled(t *testing.T) {
	disabled := false
	out := toPluginDescriptors([]config.PluginDescriptor{
		{Name: "title", Module: "title", Enabled: &disabled},
	})
	if len(out) != 1 || out[0].Enabled {
		t.Fatalf("expected explicit false to stay disabled, got %+v", out)
	}
}
