package types

type LoginRequest struct {
	Username string `json:"username"`
}

type SignupRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
}

type UpdateUserRequest struct {
	Email    string  `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}
