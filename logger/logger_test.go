package logger

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		mode string
	}{
		{"development", "dev"},
		{"production", "prod"},
		{"production alias", "Production"},
		{"unknown falls back to development", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.SugaredLogger == nil {
				t.Fatal("Expected logger to be initialized")
			}
		})
	}
}

func TestNop(t *testing.T) {
	l := NewNop().With("component", "test")

	// 出力されないがパニックしないこと
	l.Debug("debug", "key", 1)
	l.Info("info")
	l.Warn("warn", "key", "value")
	l.Error("error")
	l.Sync()
}
