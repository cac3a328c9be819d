package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestInferenceConfig_UnknownBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Inference.Backend = "llamacpp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestSuggestConfig_ModeDefaultsManual(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Suggest.Mode = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default: %v", err)
	}
	if cfg.Suggest.Mode != "manual" {
		t.Errorf("mode = %q, want manual", cfg.Suggest.Mode)
	}
	cfg.Suggest.Mode = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown suggest mode should fail")
	}
}

func TestGraphConfig_Bounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Graph.MaxDepth = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("max_depth above bound should fail")
	}
}

func TestInferenceConfig_Client(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Inference.RatePerSecond = 2
	c := cfg.Inference.Client()
	if c.Backend != "ollama" || c.RatePerSecond != 2 || c.Model != cfg.Inference.Model {
		t.Errorf("client config = %+v", c)
	}
}
