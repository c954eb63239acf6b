package config

import (
	"net/netip"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Empty numeric values fall back to their defaults.
	for _, key := range []string{"SEARCH_DEBOUNCE_MS", "MAX_PDF_SIZE_MB", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("GIN_MODE", "test")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SearchDebounce != 500*time.Millisecond {
		t.Errorf("SearchDebounce = %v, want 500ms", cfg.SearchDebounce)
	}
	if cfg.MaxPDFSize != 50<<20 {
		t.Errorf("MaxPDFSize = %d, want %d", cfg.MaxPDFSize, 50<<20)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("SEARCH_DEBOUNCE_MS", "250")
	t.Setenv("SESSION_TTL_MINUTES", "0")
	t.Setenv("MAX_PDF_SIZE_MB", "2")
	t.Setenv("WORKER_COUNT", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"debounce", cfg.SearchDebounce, 250 * time.Millisecond},
		{"ttl disabled", cfg.SessionTTL, time.Duration(0)},
		{"max size", cfg.MaxPDFSize, int64(2 << 20)},
		{"workers", cfg.WorkerCount, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_ReleaseRequiresSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", defaultJWTSecret)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for the default secret in release mode")
	}
}

func TestLoad_NetworkLists(t *testing.T) {
	t.Setenv("GIN_MODE", "test")
	t.Setenv("FETCH_ALLOWED_NETWORKS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FetchAllowedNetworks != nil || cfg.TrustedProxies != nil {
		t.Errorf("defaults = %v, %v, want none", cfg.FetchAllowedNetworks, cfg.TrustedProxies)
	}

	t.Setenv("FETCH_ALLOWED_NETWORKS", "10.0.0.0/8, 192.168.1.7 ,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,fd00::/8")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	wantNets := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
	}
	if !reflect.DeepEqual(cfg.FetchAllowedNetworks, wantNets) {
		t.Errorf("FetchAllowedNetworks = %v, want %v", cfg.FetchAllowedNetworks, wantNets)
	}
	if want := []string{"10.0.0.1", "fd00::/8"}; !reflect.DeepEqual(cfg.TrustedProxies, want) {
		t.Errorf("TrustedProxies = %v, want %v", cfg.TrustedProxies, want)
	}

	bad := []struct{ key, value string }{
		{"FETCH_ALLOWED_NETWORKS", "intranet"},
		{"TRUSTED_PROXIES", "10.0.0.0/99"},
	}
	for _, tt := range bad {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q error = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset uses fallback", "", time.Second},
		{"garbage uses fallback", "soon", time.Second},
		{"negative uses fallback", "-3", time.Second},
		{"zero kept", "0", 0},
		{"scaled", "3", 3 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvDuration("TEST_DURATION", time.Millisecond, time.Second); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
