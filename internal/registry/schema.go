package registry

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldKind enumerates the value types a provider config field may have.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindSecret FieldKind = "secret" // string, masked in UIs
	KindURL    FieldKind = "url"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
	KindEnum   FieldKind = "enum"
)

// FieldSpec describes one provider config field: its kind, constraints and
// optional default. This is what drives the generic config editor in the UI
// and the validation below.
type FieldSpec struct {
	Name     string      `json:"name" validate:"required"`
	Label    string      `json:"label"`
	Kind     FieldKind   `json:"kind" validate:"required"`
	Required bool        `json:"required"`
	Default  interface{} `json:"default,omitempty"`
	Enum     []string    `json:"enum,omitempty"`
	Min      *float64    `json:"min,omitempty"`
	Max      *float64    `json:"max,omitempty"`
	Help     string      `json:"help,omitempty"`
}

// ConfigSchema is the declared shape of one provider's config blob.
type ConfigSchema struct {
	Fields []FieldSpec `json:"fields"`
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates field-level failures for one config blob.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return "invalid provider config: " + strings.Join(msgs, "; ")
}

var validate = validator.New()

// Validate checks a config blob against the schema and returns a normalized
// copy: declared defaults applied for absent optional fields, unknown fields
// rejected. Invalid config never reaches the broker or the pipelines.
func (s *ConfigSchema) Validate(config map[string]interface{}) (map[string]interface{}, error) {
	var errs []FieldError

	known := make(map[string]FieldSpec, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = f
	}

	for name := range config {
		if _, ok := known[name]; !ok {
			errs = append(errs, FieldError{Field: name, Message: "unknown field"})
		}
	}

	normalized := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		value, present := config[f.Name]
		if !present || value == nil || value == "" {
			if f.Default != nil {
				// Explicit schema default: the only silent fill allowed.
				normalized[f.Name] = f.Default
				continue
			}
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "required field is missing"})
			}
			continue
		}

		if fe := checkField(f, value); fe != nil {
			errs = append(errs, *fe)
			continue
		}
		normalized[f.Name] = value
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return normalized, nil
}

func checkField(f FieldSpec, value interface{}) *FieldError {
	switch f.Kind {
	case KindString, KindSecret:
		if _, ok := value.(string); !ok {
			return &FieldError{Field: f.Name, Message: "expected a string"}
		}

	case KindURL:
		str, ok := value.(string)
		if !ok {
			return &FieldError{Field: f.Name, Message: "expected a URL string"}
		}
		if err := validate.Var(str, "url"); err != nil {
			return &FieldError{Field: f.Name, Message: "not a valid URL"}
		}

	case KindBool:
		if _, ok := value.(bool); !ok {
			return &FieldError{Field: f.Name, Message: "expected a boolean"}
		}

	case KindInt, KindFloat:
		num, ok := asFloat(value)
		if !ok {
			return &FieldError{Field: f.Name, Message: "expected a number"}
		}
		if f.Kind == KindInt && num != float64(int64(num)) {
			return &FieldError{Field: f.Name, Message: "expected an integer"}
		}
		if f.Min != nil && num < *f.Min {
			return &FieldError{Field: f.Name, Message: fmt.Sprintf("must be >= %v", *f.Min)}
		}
		if f.Max != nil && num > *f.Max {
			return &FieldError{Field: f.Name, Message: fmt.Sprintf("must be <= %v", *f.Max)}
		}

	case KindEnum:
		str, ok := value.(string)
		if !ok {
			return &FieldError{Field: f.Name, Message: "expected a string"}
		}
		for _, allowed := range f.Enum {
			if str == allowed {
				return nil
			}
		}
		return &FieldError{Field: f.Name, Message: fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", "))}

	default:
		return &FieldError{Field: f.Name, Message: fmt.Sprintf("unsupported field kind %q", f.Kind)}
	}
	return nil
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
