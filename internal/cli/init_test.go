package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func TestLoadCategorizer(t *testing.T) {
	t.Run("built-in rules", func(t *testing.T) {
		c, err := LoadCategorizer(&config.Config{})
		if err != nil {
			t.Fatalf("LoadCategorizer() = %v", err)
		}
		if len(c.Rules()) == 0 {
			t.Fatal("expected default rules")
		}
	})

	t.Run("rules file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte("categories:\n  - name: Pets\n    keywords: [vet, petshop]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		c, err := LoadCategorizer(&config.Config{CategoryRulesFile: path})
		if err != nil {
			t.Fatalf("LoadCategorizer() = %v", err)
		}
		if got := c.Suggest("City Vet").Category; got != "Pets" {
			t.Errorf("Suggest() = %q, want Pets", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadCategorizer(&config.Config{CategoryRulesFile: filepath.Join(t.TempDir(), "none.yaml")}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOpenLedgerFlushesOnCleanup(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:      "file",
		DataDirectory:    t.TempDir(),
		DefaultCurrency:  "USD",
		SummaryCacheSize: 4,
		SummaryCacheTTL:  time.Minute,
	}

	ledger, cleanup, err := OpenLedger(ctx, cfg, log.Nop())
	if err != nil {
		t.Fatalf("OpenLedger() = %v", err)
	}
	acct := core.NewAccount(core.NewUUID, "Checking", core.Checking, core.Zero, "USD")
	if err := ledger.Accounts.Add(ctx, acct); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	reopened, cleanup, err := OpenLedger(ctx, cfg, log.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cleanup()
	if _, ok := reopened.Accounts.Get(acct.ID); !ok {
		t.Fatal("account lost across reopen")
	}
}
