package openapi

import "maps"

var errorSchema = &Schema{
	Type: "object",
	Properties: map[string]*Schema{
		"error": {Type: "string", Description: "Error message"},
	},
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {Schema: errorSchema},
		},
	}
}

// NewComponents creates Components with the shared error responses every
// handler may return.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{},
		Responses: map[string]*Response{
			"BadRequest":   errorResponse("Invalid request"),
			"Unauthorized": errorResponse("Missing or invalid bearer token"),
			"Forbidden":    errorResponse("Caller's role or ownership does not permit the operation"),
			"NotFound":     errorResponse("Resource not found"),
			"Conflict":     errorResponse("Resource is not in the required state"),
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
