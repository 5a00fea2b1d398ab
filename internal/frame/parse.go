package frame

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wagiedev/capwire-go/internal/rpcerr"
)

// Parse converts one raw textual frame into a typed Frame.
//
// Grammar violations return a *rpcerr.FrameParseError (without a line number;
// the batch engine adds one). A push whose payload is well-formed but of an
// unrecognized kind parses successfully as UnknownPayload so the caller can
// queue an error outcome instead of aborting.
func Parse(log *slog.Logger, raw []byte) (Frame, error) {
	log = log.With("component", "frame_parser")

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Debug("Frame is not valid JSON", "error", err)

		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("failed to parse JSON: %v", err)}
	}

	arr, ok := decoded.([]any)
	if !ok {
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("expected array operation")}
	}

	var tag string
	if len(arr) > 0 {
		tag, ok = arr[0].(string)
	}

	if !ok || len(arr) == 0 {
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("operation tag must be a string")}
	}

	log.Debug("Parsing frame", "tag", tag)

	switch tag {
	case "push":
		if len(arr) < 2 {
			return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("push operation missing payload")}
		}

		payload, err := parsePayload(arr[1])
		if err != nil {
			return nil, err
		}

		return &Push{Payload: payload}, nil

	case "pull":
		id, ok := elementAsUint(arr, 1)
		if !ok {
			return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("pull expects numeric import id")}
		}

		return &Pull{ID: id}, nil

	case "result":
		id, _ := elementAsUint(arr, 1)

		return &Result{ID: id, Value: element(arr, 2)}, nil

	case "error":
		id, _ := elementAsUint(arr, 1)

		return &Error{ID: id, Message: errorMessage(element(arr, 2))}, nil

	case "resolve":
		id, _ := elementAsUint(arr, 1)

		return &Resolve{ID: id, Value: element(arr, 2)}, nil

	case "reject":
		id, _ := elementAsUint(arr, 1)

		return &Reject{ID: id, Message: errorMessage(element(arr, 2))}, nil

	default:
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("unsupported operation `%s`", tag)}
	}
}

// parsePayload decodes the second element of a push frame.
//
// Call payloads are validated strictly; pipeline payloads tolerate missing
// pieces the way a duplex receiver does (absent export id reads as 0, absent
// args as empty).
func parsePayload(v any) (Payload, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("push payload must be an array")}
	}

	var kind string
	if len(arr) > 0 {
		kind, ok = arr[0].(string)
	}

	if !ok || len(arr) == 0 {
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("push payload kind must be a string")}
	}

	switch kind {
	case "call":
		capID, ok := elementAsUint(arr, 1)
		if !ok {
			return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("call operation missing numeric capability id")}
		}

		path, ok := element(arr, 2).([]any)
		if !ok {
			return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("call operation must include a method path array")}
		}

		var method string
		if len(path) > 0 {
			method, ok = path[0].(string)
		}

		if !ok || len(path) == 0 {
			return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("call method name must be a string")}
		}

		args, err := parseArgs(arr, 3)
		if err != nil {
			return nil, err
		}

		return &Call{Cap: capID, Method: method, Args: args}, nil

	case "pipeline":
		export, _ := elementAsUint(arr, 1)

		var method string
		if path, ok := element(arr, 2).([]any); ok && len(path) > 0 {
			method, _ = path[0].(string)
		}

		args, _ := element(arr, 3).([]any)
		if args == nil {
			args = []any{}
		}

		return &Pipeline{Export: export, Method: method, Args: args}, nil

	default:
		return &UnknownPayload{RawKind: kind}, nil
	}
}

// parseArgs reads the optional argument list at the given position.
func parseArgs(arr []any, idx int) ([]any, error) {
	v := element(arr, idx)
	if v == nil && idx >= len(arr) {
		return []any{}, nil
	}

	args, ok := v.([]any)
	if !ok {
		return nil, &rpcerr.FrameParseError{Err: fmt.Errorf("call arguments must be an array")}
	}

	return args, nil
}

// errorMessage extracts the message from an error/reject payload.
//
// The canonical shape is {"message": string}; a bare string is accepted and
// anything else falls back to a generic text.
func errorMessage(v any) string {
	switch payload := v.(type) {
	case map[string]any:
		if msg, ok := payload["message"].(string); ok {
			return msg
		}
	case string:
		return payload
	}

	return "Unknown error"
}

// element returns arr[idx] or nil when out of range.
func element(arr []any, idx int) any {
	if idx < 0 || idx >= len(arr) {
		return nil
	}

	return arr[idx]
}

// elementAsUint reads arr[idx] as a non-negative integer.
func elementAsUint(arr []any, idx int) (uint64, bool) {
	return AsUint64(element(arr, idx))
}
