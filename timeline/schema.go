package timeline

import "github.com/xeipuuv/gojsonschema"

const timelineSchemaDefinition = `{
	"type": "object",
	"properties": {
		"timeline_version": {
			"type": "string"
		},
		"narration_events": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {
						"type": "string",
						"minLength": 1
					},
					"start_ms": {
						"type": "integer",
						"minimum": 0
					},
					"end_ms": {
						"type": "integer",
						"minimum": 0
					},
					"text": {
						"type": "string"
					},
					"voice_profile_id": {
						"type": "string"
					},
					"meta": {
						"type": "object"
					}
				},
				"required": ["id", "start_ms", "end_ms", "text"]
			}
		},
		"action_events": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {
						"type": "string",
						"minLength": 1
					},
					"at_ms": {
						"type": "integer",
						"minimum": 0
					},
					"action": {
						"type": "string",
						"minLength": 1
					},
					"target": {
						"type": ["string", "null"]
					},
					"args": {
						"type": "object"
					},
					"timeout_ms": {
						"type": "integer"
					},
					"retries": {
						"type": "integer"
					}
				},
				"required": ["id", "at_ms", "action"]
			}
		}
	},
	"required": ["narration_events"]
}`

func mustCompileSchema(text string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
	if err != nil {
		// raise panic on program start
		panic(err) // fix schema text
	}
	return schema
}

// Compiled on program start:
var timelineSchema = mustCompileSchema(timelineSchemaDefinition)
