package logger

import (
	"log/slog"
	"strconv"
)

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	return optionalString("request_id", id)
}

// UserID records the platform user id under the key "user_id".
func UserID(id string) slog.Attr {
	return optionalString("user_id", id)
}

// SubscriptionID records the processor subscription id under the key "subscription_id".
func SubscriptionID(id string) slog.Attr {
	return optionalString("subscription_id", id)
}

// CustomerID records the processor customer id under the key "customer_id".
func CustomerID(id string) slog.Attr {
	return optionalString("customer_id", id)
}

// PriceID records the processor price id under the key "price_id".
func PriceID(id string) slog.Attr {
	return optionalString("price_id", id)
}

// PlanID records the catalog plan id under the key "plan_id".
func PlanID(id string) slog.Attr {
	return optionalString("plan_id", id)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Event records the event id under the key "event".
func Event(id string) slog.Attr {
	return slog.String("event", id)
}

// Operation records the step that was running under the key "operation".
func Operation(name string) slog.Attr {
	return slog.String("operation", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Handler records the handler name under the key "handler".
func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}

func optionalString(key, v string) slog.Attr {
	if v == "" {
		return slog.Attr{}
	}
	return slog.String(key, v)
}
