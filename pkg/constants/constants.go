package constants

import "time"

// Message size limits
const (
	// MaxMessageLength is the kChat hard per-message character limit
	MaxMessageLength = 16383
	// MessageSizeLimit is the split size passed to the chunker; kept below
	// MaxMessageLength to leave room for the backticks added when a fenced
	// code block is continued or closed across parts
	MessageSizeLimit = 16377
)

// Timeouts and delays
const (
	// DefaultWebsocketTimeout is the interval between keep-alive heartbeats
	// on the event stream connection
	DefaultWebsocketTimeout = 30 * time.Second
	// DefaultHTTPTimeout is the timeout for REST API calls
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultReconnectDelay is the delay before the start command retries
	// the connection loop after an abnormal exit
	DefaultReconnectDelay = 5 * time.Second
)

// Direct channel cache
const (
	// DirectChannelCacheSize caps the fetch-or-create direct channel cache.
	// Channel creation is idempotent on the platform side, so eviction only
	// costs an extra round trip.
	DirectChannelCacheSize = 1024
)

// Pagination
const (
	// ChannelPageLimit is the page size used when enumerating channels
	ChannelPageLimit = 200
	// UserPageLimit is the page size used when enumerating users or members
	UserPageLimit = 200
)

// Token masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)
