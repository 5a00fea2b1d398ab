package frame

import "encoding/json"

// EncodeCall builds a push frame carrying a call payload.
func EncodeCall(capID uint64, method string, args []any) ([]byte, error) {
	return json.Marshal([]any{"push", []any{"call", capID, []any{method}, argsOrEmpty(args)}})
}

// EncodePipeline builds a push frame carrying a pipeline payload.
func EncodePipeline(exportID uint64, method string, args []any) ([]byte, error) {
	return json.Marshal([]any{"push", []any{"pipeline", exportID, []any{method}, argsOrEmpty(args)}})
}

// EncodePull builds a pull frame.
func EncodePull(id uint64) ([]byte, error) {
	return json.Marshal([]any{"pull", id})
}

// EncodeResult builds a successful batch outcome frame.
func EncodeResult(id uint64, value any) ([]byte, error) {
	return json.Marshal([]any{"result", id, value})
}

// EncodeError builds a failed batch outcome frame.
func EncodeError(id uint64, message string) ([]byte, error) {
	return json.Marshal([]any{"error", id, map[string]any{"message": message}})
}

// EncodeResolve builds a resolve frame completing a duplex call.
func EncodeResolve(id uint64, value any) ([]byte, error) {
	return json.Marshal([]any{"resolve", id, value})
}

// EncodeReject builds a reject frame failing a duplex call.
func EncodeReject(id uint64, message string) ([]byte, error) {
	return json.Marshal([]any{"reject", id, map[string]any{"message": message}})
}

// argsOrEmpty keeps encoded argument lists as [] rather than null.
func argsOrEmpty(args []any) []any {
	if args == nil {
		return []any{}
	}

	return args
}
