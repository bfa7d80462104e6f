package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/pkg/openapi"
	"github.com/JaimeStill/smartwaste/pkg/routes"
)

const openAPIPath = "/openapi.json"

var (
	uuidSchema     = &openapi.Schema{Type: "string", Format: "uuid"}
	timeSchema     = &openapi.Schema{Type: "string", Format: "date-time"}
	nullableTime   = &openapi.Schema{Type: "string", Format: "date-time", Nullable: true}
	nullableString = &openapi.Schema{Type: "string", Nullable: true}
)

func ptr[T any](v T) *T { return &v }

func schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Location": {
			Type:     "object",
			Required: []string{"lat", "lng"},
			Properties: map[string]*openapi.Schema{
				"lat": {Type: "number", Minimum: ptr(-90.0), Maximum: ptr(90.0)},
				"lng": {Type: "number", Minimum: ptr(-180.0), Maximum: ptr(180.0)},
			},
		},
		"Report": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           uuidSchema,
				"citizen_id":   uuidSchema,
				"collector_id": {Type: "string", Format: "uuid", Nullable: true},
				"description":  {Type: "string"},
				"photo_path":   nullableString,
				"location":     openapi.SchemaRef("Location"),
				"status":       {Type: "string", Enum: []any{"pending", "claimed", "completed"}},
				"created_at":   timeSchema,
				"assigned_at":  nullableTime,
				"completed_at": nullableTime,
				"result_path":  nullableString,
			},
		},
		"ReportDocument": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         uuidSchema,
				"report_id":  uuidSchema,
				"doc_type":   {Type: "string"},
				"file_path":  {Type: "string"},
				"created_at": timeSchema,
			},
		},
		"SubmitReport": {
			Type:     "object",
			Required: []string{"description"},
			Properties: map[string]*openapi.Schema{
				"description": {Type: "string", MaxLength: ptr(2000)},
				"photo_path":  {Type: "string"},
				"location":    openapi.SchemaRef("Location"),
			},
		},
		"Claim": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                  uuidSchema,
				"report_id":           uuidSchema,
				"collector_id":        uuidSchema,
				"claimed_at":          timeSchema,
				"status":              {Type: "string", Enum: []any{"claimed", "completed"}},
				"verified_waste_text": nullableString,
				"ai_category_id":      {Type: "integer", Nullable: true},
				"ai_confidence":       {Type: "number", Nullable: true, Minimum: ptr(0.0), Maximum: ptr(1.0)},
				"cleanup_photo_path":  nullableString,
				"completed_at":        nullableTime,
				"notes":               nullableString,
			},
		},
		"ClaimResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"report": openapi.SchemaRef("Report"),
				"claim":  openapi.SchemaRef("Claim"),
			},
		},
		"CompleteClaim": {
			Type:     "object",
			Required: []string{"report_id", "verified_waste_text"},
			Properties: map[string]*openapi.Schema{
				"report_id":           uuidSchema,
				"verified_waste_text": {Type: "string", MaxLength: ptr(2000)},
				"notes":               {Type: "string", MaxLength: ptr(2000)},
				"cleanup_photo_path":  {Type: "string"},
			},
		},
		"CompletionResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"report":      openapi.SchemaRef("Report"),
				"claim":       openapi.SchemaRef("Claim"),
				"category_id": {Type: "integer", Description: "0 when the classifier gave no usable prediction"},
				"label":       {Type: "string"},
				"confidence":  {Type: "number", Minimum: ptr(0.0), Maximum: ptr(1.0)},
				"degraded":    {Type: "boolean"},
				"warnings":    openapi.ArrayOf(&openapi.Schema{Type: "string"}),
			},
		},
		"ReportView": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"report":    openapi.SchemaRef("Report"),
				"claim":     openapi.SchemaRef("Claim"),
				"category":  openapi.SchemaRef("Category"),
				"documents": openapi.ArrayOf(openapi.SchemaRef("ReportDocument")),
			},
		},
		"Category": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":   {Type: "integer"},
				"name": {Type: "string"},
			},
		},
		"Notification": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         uuidSchema,
				"user_id":    uuidSchema,
				"report_id":  {Type: "string", Format: "uuid", Nullable: true},
				"type":       {Type: "string", Enum: []any{"claimed", "completed", "general"}},
				"message":    {Type: "string"},
				"is_read":    {Type: "boolean"},
				"created_at": timeSchema,
			},
		},
		"Photo": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"key":          {Type: "string", Example: "photos/2026/10/3f1c.jpg"},
				"content_type": {Type: "string"},
				"size":         {Type: "integer"},
				"width":        {Type: "integer"},
				"height":       {Type: "integer"},
				"location":     openapi.SchemaRef("Location"),
			},
		},
	}
}

func page(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        openapi.ArrayOf(openapi.SchemaRef(item)),
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

func withErrors(ok map[int]*openapi.Response, codes ...int) map[int]*openapi.Response {
	names := map[int]string{
		http.StatusBadRequest:   "BadRequest",
		http.StatusUnauthorized: "Unauthorized",
		http.StatusForbidden:    "Forbidden",
		http.StatusNotFound:     "NotFound",
		http.StatusConflict:     "Conflict",
	}
	ok[http.StatusUnauthorized] = openapi.ResponseRef("Unauthorized")
	for _, code := range codes {
		ok[code] = openapi.ResponseRef(names[code])
	}
	return ok
}

func buildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.OpenAPI.Server(cfg.API.BasePath))
	spec.Components.AddSchemas(schemas())
	security := spec.Components.UseBearerAuth()

	reportID := openapi.PathParam("id", "Report ID")
	claimID := openapi.PathParam("id", "Claim ID")

	ops := []struct {
		method string
		path   string
		op     *openapi.Operation
	}{
		{"GET", "/reports", &openapi.Operation{
			Summary: "List reports visible to the caller",
			Tags:    []string{"Reports"},
			Parameters: append(openapi.PageParams(),
				openapi.QueryParam("status", "string", "pending, claimed or completed"),
				openapi.QueryParam("citizen_id", "string", "Filter by reporting citizen"),
				openapi.QueryParam("collector_id", "string", "Filter by assigned collector"),
				openapi.QueryParam("search", "string", "Substring match on description"),
			),
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Page of reports", page("Report")),
			}),
		}},
		{"POST", "/reports", &openapi.Operation{
			Summary:     "Submit a waste report",
			Tags:        []string{"Reports"},
			RequestBody: openapi.RequestBodyJSON("SubmitReport", true),
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusCreated: openapi.ResponseJSON("Created report", openapi.SchemaRef("Report")),
			}, http.StatusBadRequest, http.StatusForbidden),
		}},
		{"GET", "/reports/{id}", &openapi.Operation{
			Summary:    "Get a report",
			Tags:       []string{"Reports"},
			Parameters: []*openapi.Parameter{reportID},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Report", openapi.SchemaRef("Report")),
			}, http.StatusForbidden, http.StatusNotFound),
		}},
		{"GET", "/reports/{id}/documents", &openapi.Operation{
			Summary:    "List documents attached to a report",
			Tags:       []string{"Reports"},
			Parameters: []*openapi.Parameter{reportID},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Documents", openapi.ArrayOf(openapi.SchemaRef("ReportDocument"))),
			}, http.StatusForbidden, http.StatusNotFound),
		}},
		{"POST", "/reports/{id}/claim", &openapi.Operation{
			Summary:    "Claim a pending report",
			Tags:       []string{"Workflow"},
			Parameters: []*openapi.Parameter{reportID},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Claimed report and new claim", openapi.SchemaRef("ClaimResult")),
			}, http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict),
		}},
		{"GET", "/reports/{id}/result", &openapi.Operation{
			Summary:    "Get a report with its latest claim, category, and documents",
			Tags:       []string{"Workflow"},
			Parameters: []*openapi.Parameter{reportID},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Report view", openapi.SchemaRef("ReportView")),
			}, http.StatusForbidden, http.StatusNotFound),
		}},
		{"POST", "/claims/{id}/complete", &openapi.Operation{
			Summary:     "Complete a held claim with verified waste text",
			Tags:        []string{"Workflow"},
			Parameters:  []*openapi.Parameter{claimID},
			RequestBody: openapi.RequestBodyJSON("CompleteClaim", true),
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Completion result", openapi.SchemaRef("CompletionResult")),
			}, http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict),
		}},
		{"GET", "/claims", &openapi.Operation{
			Summary: "List claim history",
			Tags:    []string{"Claims"},
			Parameters: append(openapi.PageParams(),
				openapi.QueryParam("status", "string", "claimed or completed"),
				openapi.QueryParam("report_id", "string", "Filter by report"),
				openapi.QueryParam("collector_id", "string", "Filter by collector (admin only)"),
			),
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Page of claims", page("Claim")),
			}, http.StatusForbidden),
		}},
		{"GET", "/claims/{id}", &openapi.Operation{
			Summary:    "Get a claim",
			Tags:       []string{"Claims"},
			Parameters: []*openapi.Parameter{claimID},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Claim", openapi.SchemaRef("Claim")),
			}, http.StatusForbidden, http.StatusNotFound),
		}},
		{"GET", "/categories", &openapi.Operation{
			Summary: "List waste categories",
			Tags:    []string{"Categories"},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Categories", openapi.ArrayOf(openapi.SchemaRef("Category"))),
			}),
		}},
		{"GET", "/notifications", &openapi.Operation{
			Summary: "List the caller's notifications",
			Tags:    []string{"Notifications"},
			Parameters: append(openapi.PageParams(),
				openapi.QueryParam("type", "string", "claimed, completed or general"),
				openapi.QueryParam("is_read", "boolean", "Filter by read state"),
			),
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Page of notifications", page("Notification")),
			}),
		}},
		{"GET", "/notifications/unread", &openapi.Operation{
			Summary: "Count unread notifications",
			Tags:    []string{"Notifications"},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: openapi.ResponseJSON("Unread count", &openapi.Schema{
					Type:       "object",
					Properties: map[string]*openapi.Schema{"unread": {Type: "integer"}},
				}),
			}),
		}},
		{"POST", "/notifications/{id}/read", &openapi.Operation{
			Summary:    "Mark a notification read",
			Tags:       []string{"Notifications"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Notification ID")},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusNoContent: {Description: "Marked read"},
			}, http.StatusNotFound),
		}},
		{"POST", "/photos", &openapi.Operation{
			Summary: "Upload a JPEG, PNG or WebP photo; JPEG EXIF GPS is returned as location",
			Tags:    []string{"Photos"},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"multipart/form-data": {Schema: &openapi.Schema{
						Type:       "object",
						Required:   []string{"photo"},
						Properties: map[string]*openapi.Schema{"photo": {Type: "string", Format: "binary"}},
					}},
				},
			},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusCreated:               openapi.ResponseJSON("Stored photo", openapi.SchemaRef("Photo")),
				http.StatusRequestEntityTooLarge: {Description: "Photo exceeds the size limit"},
				http.StatusUnsupportedMediaType:  {Description: "Photo is not a decodable JPEG, PNG or WebP"},
			}, http.StatusBadRequest),
		}},
		{"GET", "/photos/{key}", &openapi.Operation{
			Summary: "Download a stored photo",
			Tags:    []string{"Photos"},
			Parameters: []*openapi.Parameter{{
				Name:     "key",
				In:       "path",
				Required: true,
				Schema:   &openapi.Schema{Type: "string"},
			}},
			Responses: withErrors(map[int]*openapi.Response{
				http.StatusOK: {Description: "Photo bytes"},
			}, http.StatusBadRequest, http.StatusNotFound),
		}},
	}

	for _, o := range ops {
		o.op.Security = security
		spec.AddOperation(o.method, o.path, o.op)
	}

	return spec
}

func openAPIRoutes(cfg *config.Config) (routes.Group, error) {
	data, err := openapi.MarshalJSON(buildSpec(cfg))
	if err != nil {
		return routes.Group{}, fmt.Errorf("marshal openapi: %w", err)
	}

	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: openAPIPath, Handler: openapi.ServeSpec(data)},
		},
	}, nil
}
