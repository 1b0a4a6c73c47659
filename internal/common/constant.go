package common

import "time"

const (
	// RootFolderID is the sentinel folder reference meaning "no containing
	// folder". It is never stored; nil parent references map to it.
	RootFolderID = "home"

	// TokenCookieName is the cookie carrying the access token for browser clients.
	TokenCookieName = "token"

	// DefaultMimeType is assigned to uploads that arrive without a content type.
	DefaultMimeType = "application/octet-stream"

	// PreviewURLTTL is the lifetime of presigned preview links.
	PreviewURLTTL = 5 * time.Minute
)
