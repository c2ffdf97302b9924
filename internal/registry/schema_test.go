package registry

import (
	"errors"
	"testing"

	"github.com/praecohq/praeco/internal/models"
)

func testSchema() ConfigSchema {
	return ConfigSchema{
		Fields: []FieldSpec{
			{Name: "api_key", Kind: KindSecret, Required: true},
			{Name: "model", Kind: KindString, Default: "default-model"},
			{Name: "max_tokens", Kind: KindInt, Default: 1024, Min: floatPtr(1), Max: floatPtr(8192)},
			{Name: "temperature", Kind: KindFloat, Min: floatPtr(0), Max: floatPtr(1)},
			{Name: "endpoint", Kind: KindURL},
			{Name: "mode", Kind: KindEnum, Enum: []string{"fast", "thorough"}},
			{Name: "stream", Kind: KindBool},
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	schema := testSchema()

	normalized, err := schema.Validate(map[string]interface{}{
		"api_key":     "sk-test",
		"temperature": 0.5,
		"mode":        "fast",
	})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if normalized["model"] != "default-model" {
		t.Errorf("default not applied: model = %v", normalized["model"])
	}
	if normalized["max_tokens"] != 1024 {
		t.Errorf("default not applied: max_tokens = %v", normalized["max_tokens"])
	}
	if normalized["temperature"] != 0.5 {
		t.Errorf("value not carried: temperature = %v", normalized["temperature"])
	}
	if _, present := normalized["endpoint"]; present {
		t.Error("absent optional field without default should stay absent")
	}
}

func TestSchemaValidateErrors(t *testing.T) {
	schema := testSchema()

	tests := []struct {
		name   string
		config map[string]interface{}
		field  string
	}{
		{"required missing", map[string]interface{}{}, "api_key"},
		{"unknown field", map[string]interface{}{"api_key": "k", "bogus": 1}, "bogus"},
		{"wrong type", map[string]interface{}{"api_key": "k", "stream": "yes"}, "stream"},
		{"int out of range", map[string]interface{}{"api_key": "k", "max_tokens": 100000}, "max_tokens"},
		{"non-integer", map[string]interface{}{"api_key": "k", "max_tokens": 1.5}, "max_tokens"},
		{"float below min", map[string]interface{}{"api_key": "k", "temperature": -0.1}, "temperature"},
		{"bad url", map[string]interface{}{"api_key": "k", "endpoint": "not a url"}, "endpoint"},
		{"bad enum", map[string]interface{}{"api_key": "k", "mode": "turbo"}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Validate(tt.config)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type %T, want *ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.field, verr.Errors)
			}
		})
	}
}

func TestSchemaValidateEmptyStringUsesDefault(t *testing.T) {
	schema := testSchema()

	normalized, err := schema.Validate(map[string]interface{}{
		"api_key": "sk-test",
		"model":   "",
	})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if normalized["model"] != "default-model" {
		t.Errorf("empty string should take the default, got %v", normalized["model"])
	}
}

func TestDefaultCatalog(t *testing.T) {
	reg, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}

	for _, id := range []string{ProviderAnthropic, ProviderGemini, ProviderWebhook} {
		if reg.GetProvider(id) == nil {
			t.Errorf("catalog missing provider %q", id)
		}
	}

	text := reg.GetProvidersByCapability(models.CapabilityTextGeneration)
	if len(text) < 2 {
		t.Errorf("text_generation providers = %d, want at least 2", len(text))
	}
}
