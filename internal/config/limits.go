package config

const (
	// MaxDocumentTitleLength is the maximum length for document titles.
	// Titles show in the community feed, so they stay short.
	MaxDocumentTitleLength = 255

	// MaxDocumentContentLength caps the serialized editor body, in characters.
	// Even at four bytes per character it stays below the 10MB request body limit in httputil.
	MaxDocumentContentLength = 2 * 1024 * 1024

	// MaxEmailLength follows the RFC 5321 path limit.
	MaxEmailLength = 254

	// MaxSearchQueryLength caps community search input, in characters.
	MaxSearchQueryLength = 200
)
