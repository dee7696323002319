package debug

import (
	"log/slog"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "backend", map[string]bool{"backend": true}},
		{"multiple", "backend,translate", map[string]bool{"backend": true, "translate": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " backend , translate ", map[string]bool{"backend": true, "translate": true}},
		{"uppercase normalized", "BACKEND,Translate", map[string]bool{"backend": true, "translate": true}},
		{"empty segments", "backend,,translate", map[string]bool{"backend": true, "translate": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestNormalizeSpec(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"true", "all"},
		{"TRUE", "all"},
		{"1", "all"},
		{"false", ""},
		{"0", ""},
		{" true ", "all"},
		{"backend", "backend"},
		{"backend,streaming", "backend,streaming"},
		{"all", "all"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeSpec(tt.input); got != tt.want {
				t.Errorf("normalizeSpec(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	// Save and restore.
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("backend,translate")

	if !Enabled("backend") {
		t.Error("backend should be enabled")
	}
	if !Enabled("translate") {
		t.Error("translate should be enabled")
	}
	if Enabled("storage") {
		t.Error("storage should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("backend") {
		t.Error("backend should be enabled via 'all'")
	}
	if !Enabled("streaming") {
		t.Error("streaming should be enabled via 'all'")
	}
	if !Enabled("anything") {
		t.Error("anything should be enabled via 'all'")
	}
}

func TestEnabled_Empty(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	if Enabled("backend") {
		t.Error("nothing should be enabled when no categories set")
	}
}

func TestInit_BoolSpec(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	t.Setenv("DOLMETSCH_DEBUG", "")

	Init("true")
	if !Enabled("backend") {
		t.Error("Init(\"true\") should enable all categories")
	}

	Init("false")
	if Enabled("backend") {
		t.Error("Init(\"false\") should disable all categories")
	}
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	t.Setenv("DOLMETSCH_DEBUG", "streaming")

	Init("all")
	if !Enabled("streaming") {
		t.Error("streaming should be enabled from env")
	}
	if Enabled("backend") {
		t.Error("backend should not be enabled: env overrides config")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q, want %q", got, "short")
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q, want %q", got, "this is a ...")
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	// Should not panic or produce output.
	Log("backend", "test message", "key", "value")
	Trace("backend", "trace message", "key", "value")
}
