package amqp

import (
	"strings"

	"ahorro/internal/events"
)

// routingKey addresses an event as user.<uid>.<type>.
func routingKey(userID string, t events.Type) string {
	return "user." + userID + "." + string(t)
}

// bindingKey matches one user's events, or every user's with events.AllUsers.
// An empty type matches all types.
func bindingKey(userID string, t events.Type) string {
	user := userID
	if userID == events.AllUsers {
		user = "*"
	}
	if t == "" {
		return "user." + user + ".#"
	}
	return "user." + user + "." + string(t)
}

// parseRoutingKey splits a routing key back into user and type.
func parseRoutingKey(key string) (string, events.Type, bool) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] != "user" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], events.Type(parts[2]), true
}
