package service

// JSONSchema describes the Service resource for API clients. Served verbatim
// on the schema endpoint.
func JSONSchema() map[string]any {
	localized := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
		"description":          "map of locale code to text",
	}

	return map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   ModelName,
		"type":    "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":   "string",
				"format": "uuid",
			},
			"jurisdiction": map[string]any{
				"type":        "string",
				"format":      "uuid",
				"description": "jurisdiction under which the service is offered",
			},
			"group": map[string]any{
				"type":        "string",
				"format":      "uuid",
				"description": "service group the service belongs to",
			},
			"type": map[string]any{
				"type":        "string",
				"format":      "uuid",
				"description": "classification type of the service",
			},
			"priority": map[string]any{
				"type":        "string",
				"format":      "uuid",
				"description": "default priority of requests for the service",
			},
			"code": map[string]any{
				"type":        "string",
				"description": "unique identifier within a jurisdiction, derived from the name when omitted",
			},
			"name":        localized,
			"description": localized,
			"color": map[string]any{
				"type":    "string",
				"pattern": "^#[0-9A-F]{6}$",
			},
			"sla": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ttr": map[string]any{
						"type":        "number",
						"description": "time to resolve a request, in hours",
					},
				},
			},
			"flags": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"external": map[string]any{
						"type":        "boolean",
						"description": "reportable via public channels",
					},
					"account": map[string]any{
						"type":        "boolean",
						"description": "requires a customer account",
					},
				},
			},
			"default": map[string]any{
				"type": "boolean",
			},
			"createdAt": map[string]any{
				"type":   "string",
				"format": "date-time",
			},
			"updatedAt": map[string]any{
				"type":   "string",
				"format": "date-time",
			},
		},
		"required": []string{"group", "name", "code"},
	}
}
