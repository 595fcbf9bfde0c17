package tools

import (
	"encoding/json"
	"fmt"
)

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":"marshal result: %s"}`, err.Error())
	}
	return string(data)
}

func errorResult(format string, args ...any) string {
	return mustJSON(map[string]any{
		"status":  "error",
		"message": fmt.Sprintf(format, args...),
	})
}
