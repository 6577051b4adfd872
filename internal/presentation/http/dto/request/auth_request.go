package request

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterRequest represents a shop owner registration request
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=255"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	ShopName *string `json:"shop_name" binding:"omitempty,max=255"`
	Mobile   *string `json:"mobile" binding:"omitempty,max=20"`
	Address  *string `json:"address"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// UpdateProfileRequest represents a profile update. Absent fields are left alone.
type UpdateProfileRequest struct {
	Name     string  `json:"name" binding:"omitempty,min=2,max=255"`
	ShopName *string `json:"shop_name" binding:"omitempty,max=255"`
	Mobile   *string `json:"mobile" binding:"omitempty,max=20"`
	Address  *string `json:"address"`
}
