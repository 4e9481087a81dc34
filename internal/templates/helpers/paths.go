package helpers

import (
	"fmt"
	"strings"
)

// CleanBase normalises a mount point to "/" or "/segment" with no trailing slash.
func CleanBase(base string) string {
	trimmed := strings.Trim(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed
}

// JoinPath appends suffix to the console mount point.
func JoinPath(base, suffix string) string {
	suffix = "/" + strings.TrimLeft(suffix, "/")
	base = CleanBase(base)
	if base == "/" {
		return suffix
	}
	return base + suffix
}

// VariantPath is the action URL for one variant record, e.g. /admin/inventory/4/delete.
func VariantPath(base string, id int64, action string) string {
	path := fmt.Sprintf("/inventory/%d", id)
	if action = strings.Trim(action, "/"); action != "" {
		path += "/" + action
	}
	return JoinPath(base, path)
}
