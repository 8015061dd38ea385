package handlers

import "github.com/xeipuuv/gojsonschema"

const PatchSettingsRequestSchemaDefinition = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"demo_context": { "type": "string" },
		"demo_capture_execution_mode": {
			"type": "string",
			"enum": ["playwright_optional", "playwright_required"]
		},
		"narration_mode": { "type": "string" }
	}
}`

const TimelineImportRequestSchemaDefinition = `{
	"type": "object",
	"required": ["content"],
	"additionalProperties": false,
	"properties": {
		"content": { "type": "string", "minLength": 1 },
		"import_format": {
			"type": "string",
			"enum": ["auto", "timestamped_txt", "srt", "json"]
		},
		"source_name": { "type": "string" }
	}
}`

const PatchNarrationEventRequestSchemaDefinition = `{
	"type": "object",
	"additionalProperties": false,
	"minProperties": 1,
	"properties": {
		"start_ms": { "type": "integer", "minimum": 0 },
		"end_ms": { "type": "integer", "minimum": 0 },
		"text": { "type": "string" },
		"voice_profile_id": { "type": "string", "minLength": 1 },
		"meta": { "type": "object" }
	}
}`

const TTSProfileRequestSchemaDefinition = `{
	"type": "object",
	"required": ["profile_id", "voice_mode"],
	"additionalProperties": false,
	"properties": {
		"profile_id": { "type": "string", "minLength": 1 },
		"display_name": { "type": "string" },
		"provider": { "type": "string" },
		"endpoint": { "type": "string" },
		"voice_mode": {
			"type": "string",
			"enum": ["predefined_voice", "reference_audio"]
		},
		"predefined_voice_id": { "type": "string" },
		"audio_prompt_path": { "type": "string" },
		"params": { "type": "object" }
	}
}`

const TTSPreviewRequestSchemaDefinition = `{
	"type": "object",
	"required": ["text"],
	"additionalProperties": false,
	"properties": {
		"text": { "type": "string", "minLength": 1 },
		"duration_ms": { "type": "integer", "minimum": 200, "maximum": 60000 },
		"profile_id": { "type": "string" },
		"params_override": { "type": "object" }
	}
}`

const DemoRunRequestSchemaDefinition = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"execution_mode": {
			"type": "string",
			"enum": ["playwright_optional", "playwright_required"]
		}
	}
}`

var inputSchemas map[string]string = map[string]string{
	"PatchSettings":       PatchSettingsRequestSchemaDefinition,
	"TimelineImport":      TimelineImportRequestSchemaDefinition,
	"PatchNarrationEvent": PatchNarrationEventRequestSchemaDefinition,
	"TTSProfile":          TTSProfileRequestSchemaDefinition,
	"TTSPreview":          TTSPreviewRequestSchemaDefinition,
	"DemoRun":             DemoRunRequestSchemaDefinition,
}

func compileJsonSchemas() map[string]*gojsonschema.Schema {
	compiled := make(map[string]*gojsonschema.Schema, 0)
	for name, text := range inputSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
		if err != nil {
			// rase panic on program start
			panic(err) // fix schema text
		}
		compiled[name] = schema
	}
	return compiled
}

// Run compile step on program start:
var inputSchemasCompiled map[string]*gojsonschema.Schema = compileJsonSchemas()
