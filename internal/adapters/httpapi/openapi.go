package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Guilhem-Bonnet/screencraft/internal/buildinfo"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
)

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func jsonBody(schema map[string]any) map[string]any {
	return map[string]any{
		"content": map[string]any{
			"application/json": map[string]any{"schema": schema},
		},
	}
}

func op(summary string, ok int, okSchema string, body string, errs ...int) map[string]any {
	responses := map[string]any{}
	okResp := jsonBody(ref(okSchema))
	okResp["description"] = "OK"
	responses[strconv.Itoa(ok)] = okResp
	for _, code := range errs {
		e := jsonBody(ref("Error"))
		e["description"] = http.StatusText(code)
		responses[strconv.Itoa(code)] = e
	}
	out := map[string]any{"summary": summary, "responses": responses}
	if body != "" {
		req := jsonBody(ref(body))
		req["required"] = true
		out["requestBody"] = req
	}
	return out
}

func object(required []string, props map[string]any) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func str() map[string]any { return map[string]any{"type": "string"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }
func integer() map[string]any { return map[string]any{"type": "integer"} }
func dateTime() map[string]any { return map[string]any{"type": "string", "format": "date-time"} }
func arrayOf(s any) map[string]any { return map[string]any{"type": "array", "items": s} }

func pageOf(item string) map[string]any {
	return object([]string{"items", "total", "page", "limit", "totalPages"}, map[string]any{
		"items":      arrayOf(ref(item)),
		"total":      integer(),
		"page":       integer(),
		"limit":      integer(),
		"totalPages": integer(),
	})
}

// handleOpenAPI décrit l'API HTTP (OpenAPI 3).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	const (
		nf  = http.StatusNotFound
		cf  = http.StatusConflict
		bad = http.StatusBadRequest
	)

	schemas := map[string]any{
		"Error": object([]string{"statusCode", "message", "error"}, map[string]any{
			"statusCode": integer(),
			"message":    str(),
			"error":      str(),
		}),
		"Episode": object([]string{"id", "name"}, map[string]any{
			"id": str(), "name": str(), "isExclusive": boolean(),
			"likesNumber": map[string]any{"type": "integer", "minimum": 0},
			"reviewed":    boolean(), "videoLink": str(),
			"createdAt": dateTime(), "updatedAt": dateTime(),
		}),
		"EpisodeInput": object(nil, map[string]any{
			"name": str(), "isExclusive": boolean(),
			"likesNumber": map[string]any{"type": "integer", "minimum": 0},
			"reviewed":    boolean(), "videoLink": str(),
		}),
		"ContentItem": object([]string{"id", "name", "category", "episodeIds"}, map[string]any{
			"id": str(), "name": str(), "introImage": str(), "isExclusive": boolean(), "category": str(),
			"episodeIds": arrayOf(str()),
			"episodes":   arrayOf(ref("Episode")),
			"createdAt":  dateTime(), "updatedAt": dateTime(),
		}),
		"ContentItemInput": object(nil, map[string]any{
			"name": str(), "introImage": str(), "isExclusive": boolean(), "category": str(),
		}),
		"Section": object([]string{"name", "order", "items"}, map[string]any{
			"name":  str(),
			"order": map[string]any{"type": "integer", "minimum": 0},
			"items": arrayOf(ref("ContentItem")),
		}),
		"SectionInput": object([]string{"name"}, map[string]any{
			"name":  str(),
			"order": integer(),
			"items": arrayOf(str()),
		}),
		"SectionPatch": object(nil, map[string]any{
			"order": integer(),
			"items": arrayOf(str()),
		}),
		"ContentRef": object([]string{"contentItemId"}, map[string]any{"contentItemId": str()}),
		"HomeScreen": object([]string{"id", "sections", "isActive"}, map[string]any{
			"id":        str(),
			"sections":  arrayOf(ref("Section")),
			"isActive":  boolean(),
			"version":   integer(),
			"createdAt": dateTime(), "updatedAt": dateTime(),
		}),
		"HomeScreenInput": object(nil, map[string]any{
			"sections": arrayOf(ref("SectionInput")),
		}),
		"HomeScreenPatch": object(nil, map[string]any{
			"isActive": boolean(),
			"sections": arrayOf(ref("SectionInput")),
		}),
		"HomeScreenPage":  pageOf("HomeScreen"),
		"ContentItemPage": pageOf("ContentItem"),
		"EpisodePage":     pageOf("Episode"),
		"Health":          object([]string{"status"}, map[string]any{"status": str()}),
		"BuildInfo": object(nil, map[string]any{
			"version": str(), "commit": str(), "date": str(),
		}),
	}

	paths := map[string]any{
		"/health":  map[string]any{"get": op("Liveness", 200, "Health", "")},
		"/version": map[string]any{"get": op("Build info", 200, "BuildInfo", "")},
		"/home-screens": map[string]any{
			"post": op("Create a configuration (inactive)", 201, "HomeScreen", "HomeScreenInput", bad, nf),
			"get":  op("List configurations, active first", 200, "HomeScreenPage", ""),
		},
		"/home-screens/active": map[string]any{
			"get": op("Active configuration", 200, "HomeScreen", "", nf),
		},
		"/home-screens/{id}": map[string]any{
			"get":    op("Get a configuration", 200, "HomeScreen", "", nf),
			"patch":  op("Patch a configuration", 200, "HomeScreen", "HomeScreenPatch", bad, nf, cf),
			"delete": op("Delete a configuration", 200, "HomeScreen", "", nf),
		},
		"/home-screens/{id}/activate": map[string]any{
			"put": op("Activate a configuration", 200, "HomeScreen", "", nf, cf),
		},
		"/home-screens/{id}/sections": map[string]any{
			"post": op("Add a section", 200, "HomeScreen", "SectionInput", bad, nf, cf),
		},
		"/home-screens/{id}/sections/{name}": map[string]any{
			"patch":  op("Move a section or replace its items", 200, "HomeScreen", "SectionPatch", bad, nf, cf),
			"delete": op("Remove a section", 200, "HomeScreen", "", nf),
		},
		"/home-screens/{id}/sections/{name}/content": map[string]any{
			"post": op("Add a content item to a section", 200, "HomeScreen", "ContentRef", bad, nf),
		},
		"/home-screens/{id}/sections/{name}/content/{contentItemId}": map[string]any{
			"delete": op("Remove a content item from a section", 200, "HomeScreen", "", nf),
		},
		"/content-items": map[string]any{
			"post": op("Create a content item", 201, "ContentItem", "ContentItemInput", bad),
			"get":  op("List content items", 200, "ContentItemPage", ""),
		},
		"/content-items/{id}": map[string]any{
			"get":    op("Get a content item", 200, "ContentItem", "", nf),
			"patch":  op("Patch a content item", 200, "ContentItem", "ContentItemInput", bad, nf),
			"delete": op("Delete a content item", 200, "ContentItem", "", nf),
		},
		"/content-items/{id}/episodes/{episodeId}": map[string]any{
			"put":    op("Attach an episode", 200, "ContentItem", "", nf),
			"delete": op("Detach an episode", 200, "ContentItem", "", nf),
		},
		"/episodes": map[string]any{
			"post": op("Create an episode", 201, "Episode", "EpisodeInput", bad),
			"get":  op("List episodes", 200, "EpisodePage", ""),
		},
		"/episodes/{id}": map[string]any{
			"get":    op("Get an episode", 200, "Episode", "", nf),
			"patch":  op("Patch an episode", 200, "Episode", "EpisodeInput", bad, nf),
			"delete": op("Delete an episode", 200, "Episode", "", nf),
		},
	}

	httpjson.Write(w, http.StatusOK, map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "screencraft API",
			"version": buildinfo.Current().Version,
		},
		"components": map[string]any{"schemas": schemas},
		"paths":      paths,
	})
}
