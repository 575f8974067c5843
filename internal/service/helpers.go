// 文件路径: internal/service/helpers.go
// 模块说明: 输入清洗、UUID 与时钟等通用工具。
package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func newInstanceUUID() string {
	return uuid.NewString()
}

// sanitizeText strips all markup, for names and titles.
func sanitizeText(input string) string {
	return strings.TrimSpace(strictSanitizer().Sanitize(strings.TrimSpace(input)))
}

// sanitizeHTML keeps user-generated-content markup, for note bodies.
func sanitizeHTML(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(ugcSanitizer().Sanitize(trimmed))
}

var strictSanitizer = sync.OnceValue(bluemonday.StrictPolicy)

var ugcSanitizer = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AllowURLSchemes("http", "https")
	policy.AddSpaceWhenStrippingTag(true)
	return policy
})

func patchString(dst *string, src *string, sanitize func(string) string) {
	if src == nil {
		return
	}
	if sanitize != nil {
		*dst = sanitize(*src)
		return
	}
	*dst = *src
}

func patchBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
