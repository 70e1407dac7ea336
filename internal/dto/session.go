package dto

// LoginRequest opens a session. Blank fields fall back to the configured defaults.
type LoginRequest struct {
	Server   string `json:"server" validate:"omitempty,max=255"`
	School   string `json:"school" validate:"omitempty,max=255"`
	User     string `json:"user" validate:"omitempty,max=255"`
	Password string `json:"password"`
	Reset    bool   `json:"reset"`
}
