package domain

import (
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ResponseVariant is one alternative rendering of a response template.
// Variants may carry non-text payloads (images, buttons); only the text is
// relevant for suggestions, so everything else is ignored here.
type ResponseVariant struct {
	Text string `json:"text" yaml:"text"`
}

// Responses maps an action name (e.g. "utter_greet") to its ordered list of
// template variants.
type Responses map[string][]ResponseVariant

// TextsFor returns the text of every variant registered for action,
// preserving template order and skipping variants without text. A nil
// receiver or unknown action yields nil.
func (r Responses) TextsFor(action string) []string {
	variants, ok := r[action]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if v.Text != "" {
			out = append(out, v.Text)
		}
	}
	return out
}

// responsesSchema constrains the domain file shape: a "responses" mapping of
// action names to non-empty variant lists. Validated at load time so lookup
// never has to second-guess the structure.
const responsesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["responses"],
  "properties": {
    "responses": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "minItems": 1,
        "items": {
          "type": "object",
          "properties": {
            "text": { "type": "string", "minLength": 1 }
          }
        }
      }
    }
  }
}`

// LoadResponses reads a dialogue-domain YAML file and returns its response
// templates. The document is schema-validated before decoding; a file that
// parses but does not match the expected shape is rejected with the
// validator's error rather than surfacing later as a missed lookup.
func LoadResponses(path string) (Responses, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain file: %w", err)
	}
	return ParseResponses(data)
}

// ParseResponses decodes and validates a raw domain YAML document.
func ParseResponses(data []byte) (Responses, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse domain yaml: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("domain.schema.json", strings.NewReader(responsesSchema)); err != nil {
		return nil, fmt.Errorf("load domain schema: %w", err)
	}
	schema, err := compiler.Compile("domain.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile domain schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid domain file: %w", err)
	}

	var out struct {
		Responses Responses `yaml:"responses"`
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode domain responses: %w", err)
	}
	return out.Responses, nil
}
