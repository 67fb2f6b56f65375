// Package handler contains the HTTP handlers of the API.
package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user id stored in the context by the
// JWT middleware. Numeric JWT claims decode as float64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentUsername returns the username claim from the context, or "-" for
// anonymous callers. Used for audit logging and event payloads.
func currentUsername(c echo.Context) string {
	if s, ok := c.Get("username").(string); ok && s != "" {
		return s
	}
	return "-"
}
