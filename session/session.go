// Package session persists login sessions in Redis. Each session is a JSON
// record under "<prefix>:<id>"; a set under "<prefix>:user:<uid>" indexes a
// user's session IDs so fan-out invalidation never scans the keyspace.
package session

import "time"

// Session is the server-side record created at login and destroyed at
// logout, password reset, or expiry.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Context carries the request attributes recorded on a new session.
type Context struct {
	Email     string
	Role      string
	IP        string
	UserAgent string
}
