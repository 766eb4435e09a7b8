package httpdto

type CreateGroupRequest struct {
	Name                  string  `json:"name" binding:"required"`
	Description           *string `json:"description"`
	DefaultSessionMinutes int     `json:"default_session_minutes"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}
