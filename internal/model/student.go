package model

import "time"

// Student is a registered exam candidate. Name and phone together identify
// the student at login.
type Student struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         *string   `json:"email,omitempty"`
	CollegeID     *int64    `json:"college_id,omitempty"`
	BranchID      *int64    `json:"branch_id,omitempty"`
	YearOfPassing *int      `json:"year_of_passing,omitempty"`
	Qualification string    `json:"qualification"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload that starts an OTP login.
type StudentLoginRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=150"`
	Phone string `json:"phone" binding:"required,phone"`
}

// VerifyOTPRequest completes an OTP login.
type VerifyOTPRequest struct {
	PendingToken string `json:"pending_token" binding:"required"`
	Code         string `json:"code" binding:"required,len=6,numeric"`
}

// RegisterStudentRequest is the registration form payload.
type RegisterStudentRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=150"`
	Email         string `json:"email" binding:"required,email,max=254"`
	Phone         string `json:"phone" binding:"required,phone"`
	CollegeID     int64  `json:"college_id" binding:"required"`
	BranchID      int64  `json:"branch_id" binding:"required"`
	Qualification string `json:"qualification" binding:"omitempty,max=50"`
	// YearOfPassing accepts a date ("2024-05-01") or a bare year ("2024").
	YearOfPassing string `json:"year_of_passing"`
}

// CheckUserResponse reports registration-time uniqueness checks.
type CheckUserResponse struct {
	EmailExists bool `json:"email_exists"`
	PhoneExists bool `json:"phone_exists"`
}

// CheckUserQuery holds the optional check-user query parameters.
type CheckUserQuery struct {
	Email string `form:"email" binding:"omitempty,email"`
	Phone string `form:"phone" binding:"omitempty,phone"`
}
