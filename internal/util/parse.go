package util

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseUint parses a positive ID. Zero and garbage both fail.
func ParseUint(s string) (uint, bool) {
	val, err := strconv.ParseUint(s, 10, 64)
	if err != nil || val == 0 {
		return 0, false
	}
	return uint(val), true
}

// ParseIDParam reads a numeric path parameter, responding 404 when it is not
// a valid ID.
func ParseIDParam(c *gin.Context, name, resource string) (uint, bool) {
	id, ok := ParseUint(c.Param(name))
	if !ok {
		RespondNotFound(c, resource)
		return 0, false
	}
	return id, true
}

// Pagination reads limit/offset query parameters
func Pagination(c *gin.Context) (limit, offset int) {
	limit = ParseInt(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)), DefaultPageSize)
	offset = ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ParseStringList accepts a JSON array ("[\"a\",\"b\"]"), a comma-separated
// string, or repeated form values.
func ParseStringList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		if raw == "" {
			return []string{}
		}
		if strings.HasPrefix(raw, "[") {
			var list []string
			if err := json.Unmarshal([]byte(raw), &list); err == nil {
				return list
			}
		}
		values = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseBool reads truthy form values ("true", "1", "on")
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}
