package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	ToolsetName        = "mcp-demo-toolset"
	ToolsetDescription = "A toolset with mock text translation and simple number addition."

	TranslateTextName = "translateText"
	AddNumbersName    = "addNumbers"
)

// Builtin returns the registry holding translateText and addNumbers.
func Builtin() *Registry {
	r, err := NewRegistry(ToolsetName, ToolsetDescription, TranslateText(), AddNumbers())
	if err != nil {
		panic(fmt.Sprintf("tools: builtin registry: %v", err))
	}
	return r
}

// TranslateText returns the mock translation tool. It does not translate:
// the result is the input text tagged with the target language.
func TranslateText() *Definition {
	return &Definition{
		Name:        TranslateTextName,
		Description: "Translates text into the given target language.",
		InputShape: map[string]string{
			"text":           "string (the text to translate)",
			"targetLanguage": "string (target language code, e.g. 'en', 'zh', 'fr')",
		},
		OutputShape: map[string]string{
			"translatedText": "string (the translated text)",
		},
		InputSchema: objectSchema(map[string]string{
			"text":           "string",
			"targetLanguage": "string",
		}, "text", "targetLanguage"),
		Execute: func(_ context.Context, inputs map[string]any) (map[string]any, error) {
			text, ok1 := inputs["text"].(string)
			lang, ok2 := inputs["targetLanguage"].(string)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: 'text' and 'targetLanguage' must be strings", ErrInvalidInput)
			}
			return map[string]any{
				"translatedText": Translate(text, lang),
			}, nil
		},
	}
}

// Translate produces the placeholder translation of text into lang.
func Translate(text, lang string) string {
	return text + " (translated to " + lang + ")"
}

// AddNumbers returns the addition tool.
func AddNumbers() *Definition {
	return &Definition{
		Name:        AddNumbersName,
		Description: "Computes the sum of two numbers.",
		InputShape: map[string]string{
			"number1": "number (the first addend)",
			"number2": "number (the second addend)",
		},
		OutputShape: map[string]string{
			"sum": "number (the sum of both numbers)",
		},
		InputSchema: objectSchema(map[string]string{
			"number1": "number",
			"number2": "number",
		}, "number1", "number2"),
		Execute: func(_ context.Context, inputs map[string]any) (map[string]any, error) {
			a, ok1 := number(inputs["number1"])
			b, ok2 := number(inputs["number2"])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: 'number1' and 'number2' must be numbers", ErrInvalidInput)
			}
			sum := a + b
			if math.IsInf(sum, 0) || math.IsNaN(sum) {
				return nil, fmt.Errorf("sum of %g and %g is out of range", a, b)
			}
			return map[string]any{
				"sum": sum,
			}, nil
		},
	}
}

func objectSchema(properties map[string]string, required ...string) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(properties))
	for name, typ := range properties {
		props[name] = &jsonschema.Schema{Type: typ}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
