package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/tinthat/internal/nli"
	"github.com/ppiankov/tinthat/internal/worker"
)

func writeNLIConfig(t *testing.T, path, baseURL, modelName string) {
	t.Helper()
	data := "nli:\n" +
		"  provider: crossencoder\n" +
		"  base_url: " + baseURL + "\n" +
		"  model: " + modelName + "\n" +
		"  labels:\n" +
		"    label_0: refuted\n" +
		"    label_1: supported\n" +
		"    label_2: nei\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestReloadVerifier_ReadsChangedConfig(t *testing.T) {
	modelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[{"label":"LABEL_1","score":0.9},{"label":"LABEL_2","score":0.08},{"label":"LABEL_0","score":0.02}]]`))
	}))
	defer modelServer.Close()

	resetViper(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeNLIConfig(t, path, "http://127.0.0.1:1", "phobert-nli-v1")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	a := &app{cfg: cfg, logger: zap.NewNop(), limiter: worker.NewLimiter(100, 10)}

	initial, err := nli.New(cfg.NLI, a.modelServerConfig())
	if err != nil {
		t.Fatalf("nli.New failed: %v", err)
	}
	holder := nli.NewHolder(initial)

	writeNLIConfig(t, path, modelServer.URL, "phobert-nli-v2")
	if err := holder.Reload(context.Background(), a.reloadVerifier); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got, want := holder.Current().Name(), "crossencoder:phobert-nli-v2"; got != want {
		t.Errorf("live verifier: got %q, want %q", got, want)
	}
	if holder.Generation() != 2 {
		t.Errorf("expected generation 2, got %d", holder.Generation())
	}
	if a.cfg.NLI.Model != "phobert-nli-v1" {
		t.Errorf("running config changed: %q", a.cfg.NLI.Model)
	}
}

func TestReloadVerifier_BrokenConfigKeepsOldVerifier(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeNLIConfig(t, path, "http://127.0.0.1:1", "phobert-nli-v1")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	a := &app{cfg: cfg, logger: zap.NewNop(), limiter: worker.NewLimiter(100, 10)}
	initial, err := nli.New(cfg.NLI, a.modelServerConfig())
	if err != nil {
		t.Fatalf("nli.New failed: %v", err)
	}
	holder := nli.NewHolder(initial)

	if err := os.WriteFile(path, []byte("nli: [not, a, map\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := holder.Reload(context.Background(), a.reloadVerifier); err == nil {
		t.Fatal("expected reload to fail on an unreadable config")
	}
	if got := holder.Current().Name(); got != "crossencoder:phobert-nli-v1" {
		t.Errorf("live verifier replaced: %q", got)
	}
}
