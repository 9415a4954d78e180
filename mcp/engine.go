package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polyquery/polyquery/audit"
	"github.com/polyquery/polyquery/database"
)

// Engine routes decoded JSON-RPC requests to protocol methods and
// registered tools. It is transport-agnostic; stdio and websocket both feed
// raw message bytes into HandleMessage.
type Engine struct {
	name     string
	version  string
	registry *Registry
	db       *database.Database
	audit    *audit.Logger
	logger   *zap.Logger
}

func NewEngine(name, version string, registry *Registry, db *database.Database, auditLog *audit.Logger, logger *zap.Logger) *Engine {
	return &Engine{
		name:     name,
		version:  version,
		registry: registry,
		db:       db,
		audit:    auditLog,
		logger:   logger,
	}
}

// HandleMessage processes one raw message and returns the encoded response,
// or nil when the message is a notification.
func (e *Engine) HandleMessage(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		// Valid JSON that is not an object is dropped rather than answered:
		// there is no envelope to respond to.
		if json.Valid(raw) {
			e.logger.Debug("non-object message ignored")
			return nil
		}
		return e.encode(errorResponse(nil, CodeParseError, "Parse error", nil))
	}

	requestID := uuid.NewString()
	logger := e.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
	)
	logger.Debug("request received")

	if e.audit != nil {
		if err := e.audit.Log(req.Method, "", fmt.Sprintf("id=%v request_id=%s", req.ID, requestID)); err != nil {
			logger.Warn("audit write failed", zap.Error(err))
		}
	}

	if req.IsNotification() {
		logger.Debug("notification ignored")
		return nil
	}

	resp := e.dispatch(ctx, logger, &req)
	if resp == nil {
		return nil
	}
	return e.encode(resp)
}

func (e *Engine) dispatch(ctx context.Context, logger *zap.Logger, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"resources": map[string]any{},
				"prompts":   map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    e.name,
				"version": e.version,
			},
		})

	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": e.registry.List()})

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
			}
		}
		if params.Name == "" {
			return errorResponse(req.ID, CodeInvalidParams, "Invalid params", "missing tool name")
		}
		return e.callTool(ctx, logger, req.ID, params.Name, params.Arguments)

	case "resources/list":
		return resultResponse(req.ID, map[string]any{"resources": resourceList()})

	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
			}
		}
		return e.readResource(ctx, req.ID, params.URI)

	case "prompts/list":
		return resultResponse(req.ID, map[string]any{"prompts": promptList()})

	case "prompts/get":
		var params struct {
			Name string `json:"name"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
			}
		}
		return e.getPrompt(req.ID, params.Name)

	default:
		// Bare tool names work as a method shorthand so thin clients can
		// skip the tools/call envelope.
		if e.registry.Has(req.Method) {
			var args map[string]any
			if len(req.Params) > 0 {
				if err := json.Unmarshal(req.Params, &args); err != nil {
					return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
				}
			}
			return e.callTool(ctx, logger, req.ID, req.Method, args)
		}
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

func (e *Engine) callTool(ctx context.Context, logger *zap.Logger, id any, name string, args map[string]any) *Response {
	logger.Info("tool call", zap.String("tool", name))

	result, err := e.registry.Call(ctx, name, args)
	if err != nil {
		var unknown *ErrUnknownTool
		if errors.As(err, &unknown) {
			return errorResponse(id, CodeMethodNotFound, unknown.Error(), nil)
		}
		var panicked *PanicError
		if errors.As(err, &panicked) {
			logger.Error("tool panicked", zap.String("tool", name), zap.String("stack", panicked.Stack))
			return errorResponse(id, CodeInternalError, panicked.Error(), panicked.Stack)
		}
		logger.Error("tool failed", zap.String("tool", name), zap.Error(err))
		return errorResponse(id, CodeInternalError, err.Error(), nil)
	}

	text, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		return errorResponse(id, CodeInternalError, merr.Error(), nil)
	}
	return resultResponse(id, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(text)},
		},
	})
}

func resourceList() []map[string]any {
	return []map[string]any{
		{
			"uri":         "sources://all",
			"name":        "Data sources",
			"description": "The configured backends and their connection state",
			"mimeType":    "application/json",
		},
		{
			"uri":         "tables://all",
			"name":        "Store tables",
			"description": "Tables available in the local store",
			"mimeType":    "application/json",
		},
	}
}

func (e *Engine) readResource(ctx context.Context, id any, uri string) *Response {
	var body any
	switch uri {
	case "sources://all":
		result, err := e.registry.Call(ctx, "list_sources", nil)
		if err != nil {
			return errorResponse(id, CodeInternalError, err.Error(), nil)
		}
		body = result
	case "tables://all":
		tables, err := e.db.ListTables(ctx)
		if err != nil {
			return errorResponse(id, CodeInternalError, err.Error(), nil)
		}
		body = map[string]any{"tables": tables}
	default:
		return errorResponse(id, CodeInvalidParams, fmt.Sprintf("unknown resource: %s", uri), nil)
	}

	text, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return errorResponse(id, CodeInternalError, err.Error(), nil)
	}
	return resultResponse(id, map[string]any{
		"contents": []map[string]any{
			{"uri": uri, "mimeType": "application/json", "text": string(text)},
		},
	})
}

const queryHelpText = `How to query this server:

- query_data takes a natural-language question or a raw SELECT and runs it
  against the local store. Only SELECT statements are accepted and results
  are capped at 1000 rows.
- query_api calls the REST backend. GET responses are cached; pass
  invalidate_cache with a mutating method to drop the cache.
- search_users searches every backend at once. Queries understand emails,
  ids, regions (na, eu, apac, latam), "signed up last month", and AND/OR
  combinations, for example:
    alice@example.com
    users from eu and signed up last month
    id 42 or bob
- transform_data, integrate_data and export_data post-process rows from any
  of the above.`

func promptList() []map[string]any {
	return []map[string]any{
		{
			"name":        "query_help",
			"description": "How to phrase queries against the configured backends",
		},
	}
}

func (e *Engine) getPrompt(id any, name string) *Response {
	if name != "query_help" {
		return errorResponse(id, CodeInvalidParams, fmt.Sprintf("unknown prompt: %s", name), nil)
	}
	return resultResponse(id, map[string]any{
		"description": "How to phrase queries against the configured backends",
		"messages": []map[string]any{
			{
				"role": "user",
				"content": map[string]any{
					"type": "text",
					"text": queryHelpText,
				},
			},
		},
	})
}

func (e *Engine) encode(resp *Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// The envelope is built from marshalable values, so this only
		// fires if a tool returns something exotic.
		e.logger.Error("response encode failed", zap.Error(err))
		fallback, _ := json.Marshal(errorResponse(resp.ID, CodeInternalError, "response encoding failed", nil))
		return fallback
	}
	return out
}
