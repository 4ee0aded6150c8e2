package domain

import "time"

// RateLimitRule: лимит запросов на ключ в окне
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

const (
	RateLimitScopeAuth    = "auth"
	RateLimitScopeMessage = "message"
)
