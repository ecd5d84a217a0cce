package api

import "time"

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserResponse represents a user response.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberResponse is a single entry in the team member list.
type MemberResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Online bool   `json:"online"`
}

// MemberListResponse represents the team member list.
type MemberListResponse struct {
	Members []MemberResponse `json:"members"`
}

// CreateTaskBody is the request body for creating a task.
type CreateTaskBody struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Assignee     string     `json:"assignee"`
	AssigneeType string     `json:"assignee_type"`
	Deadline     *time.Time `json:"deadline"`
	Tags         []string   `json:"tags"`
}

// UpdateTaskBody is the request body for a partial task update. Absent
// fields are left untouched; assignee and assignee_type travel together.
type UpdateTaskBody struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	Assignee     *string    `json:"assignee"`
	AssigneeType *string    `json:"assignee_type"`
	Deadline     *time.Time `json:"deadline"`
	Tags         *[]string  `json:"tags"`
}

// StatusBody is the request body for a status-only update.
type StatusBody struct {
	Status string `json:"status"`
}

// CommentBody is the request body for appending a comment.
type CommentBody struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
