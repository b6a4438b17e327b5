package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/TRITMAP/internal/errors"
)

// JSON-RPC 2.0 error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// decodeParams accepts either a params object or a one element array
// holding the object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return apperrors.Wrap(apperrors.ErrBadRequest, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return apperrors.Wrap(apperrors.ErrBadRequest, "invalid parameter format, expected object")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Wrapf(apperrors.ErrBadRequest, "invalid parameters: %v", err)
	}
	return nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "mapping.optimize":
		var p OptimizeRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.startOptimization(p)
		}
	case "mapping.status":
		var p IDRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.optimizationStatus(p.OptimizationID)
		}
	case "mapping.cancel":
		var p IDRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.cancelOptimization(p.OptimizationID)
		}
	case "mapping.score":
		var p ScoreRequest
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.scoreMapping(p)
		}
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := codeServerError
		if apperrors.StatusCode(err) == http.StatusBadRequest {
			code = codeInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
