package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.BlobRoot != "./data" {
		t.Errorf("BlobRoot = %s, want ./data", cfg.BlobRoot)
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "recon", Password: "secret", Database: "ledger"}
	want := "postgres://recon:secret@db:5432/ledger?sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %s, want %s", got, want)
	}
}

func TestGatewayPairChargeKeywordUnion(t *testing.T) {
	pair := GatewayPair{
		External: GatewayFileConfig{ChargeKeywords: []string{"Jenga Charge", "Excise Duty"}},
		Internal: GatewayFileConfig{ChargeKeywords: []string{"EXCISE DUTY", "Ledger Fee"}},
	}
	got := pair.ChargeKeywords()
	if len(got) != 3 {
		t.Fatalf("expected 3 deduplicated keywords, got %d: %v", len(got), got)
	}
	if !pair.HasChargeKeyword("a JENGA CHARGE line item") {
		t.Errorf("expected case-insensitive match on jenga charge")
	}
	if !pair.HasChargeKeyword("ledger fee applied") {
		t.Errorf("expected match on internal-side keyword")
	}
	if pair.HasChargeKeyword("ordinary payout") {
		t.Errorf("did not expect a match on non-charge narrative")
	}
}

func TestAppConfigGatewayPairMissing(t *testing.T) {
	cfg := AppConfig{Gateways: map[string]GatewayFileConfig{
		"equity_external": {Name: "equity_external"},
	}}
	if _, err := cfg.GatewayPair("equity"); err == nil {
		t.Fatalf("expected error for missing internal config")
	}
}
