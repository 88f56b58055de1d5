package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP prefers the proxy headers set by the CDN in front of the API.
func ClientIP(c *fiber.Ctx) string {
	for _, h := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if v := strings.TrimSpace(c.Get(h)); v != "" {
			return v
		}
	}
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	return c.IP()
}

// Pagination reads page/limit query params, clamping limit to max.
func Pagination(c *fiber.Ctx, defaultLimit, max int) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
