package events

import "fmt"

// Named is implemented by events that carry a stable signal name for logs.
type Named interface {
	EventName() string
}

func typeName(v any) string {
	if n, ok := v.(Named); ok {
		return n.EventName()
	}
	return fmt.Sprintf("%T", v)
}
