package server

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const sessionSchemaJSON = `{
	"type": "object",
	"required": ["session_type", "genre", "total_questions", "answers"],
	"properties": {
		"session_type": {"type": "string", "enum": ["genre"]},
		"genre": {"type": "string", "minLength": 1},
		"total_questions": {"type": "integer", "minimum": 1},
		"answers": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["question_id", "selected_choice_id", "is_correct"],
				"properties": {
					"question_id": {"type": "string", "minLength": 1},
					"selected_choice_id": {"type": "string"},
					"is_correct": {"type": "boolean"}
				}
			}
		}
	}
}`

const bulkUpdateSchemaJSON = `{
	"type": "object",
	"required": ["question_ids", "updates"],
	"properties": {
		"question_ids": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		},
		"updates": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": false,
			"properties": {
				"genre": {"type": ["string", "integer"]},
				"difficulty": {"type": "integer", "enum": [1, 2, 3]},
				"reviewed_at": {"type": ["string", "null"], "format": "date-time"}
			}
		}
	}
}`

var (
	sessionSchema    = mustSchema(sessionSchemaJSON)
	bulkUpdateSchema = mustSchema(bulkUpdateSchemaJSON)
)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(err)
	}
	return schema
}

// validateBody returns a readable list of schema violations, or "" when body
// is valid.
func validateBody(schema *gojsonschema.Schema, body []byte) (string, error) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return "", err
	}
	if result.Valid() {
		return "", nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return strings.Join(problems, "; "), nil
}

func isEmail(value string) bool {
	return gojsonschema.FormatCheckers.IsFormat("email", value)
}
