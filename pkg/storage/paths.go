package storage

import (
	"path"
	"strings"
)

// CleanPath normalizes a caller-supplied path into canonical backend form:
// absolute, "/"-separated, no trailing slash (except the root itself), no
// "." or ".." segments.
//
// An empty path is rejected with ErrInvalidArgument rather than silently
// treated as the root, since foreign callers passing an empty string almost
// always hold a marshaling bug.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", &StoreError{Code: ErrInvalidArgument, Message: "empty path"}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p), nil
}

// ParentPath returns the parent directory of a cleaned path.
// The parent of the root is the root.
func ParentPath(p string) string {
	return path.Dir(p)
}

// BaseName returns the last element of a cleaned path.
func BaseName(p string) string {
	return path.Base(p)
}

// IsRoot reports whether a cleaned path refers to the backend root.
func IsRoot(p string) bool {
	return p == "/"
}

// IsDescendant reports whether a cleaned path p lies strictly below the
// cleaned directory path dir.
func IsDescendant(dir, p string) bool {
	if IsRoot(dir) {
		return !IsRoot(p)
	}
	return strings.HasPrefix(p, dir+"/")
}
