package services

import "errors"

// Causes attached to unauthorized login errors. They share caller-visible
// messages where required but stay distinguishable with errors.Is.
var (
	ErrUnknownEmail     = errors.New("no user with this email")
	ErrWrongPassword    = errors.New("password does not match")
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidToken is returned by ValidateToken for any rejected session token.
	ErrInvalidToken = errors.New("invalid session token")
)

// Caller-facing messages.
const (
	MsgSignupSuccess      = "Registration successful. Please check your email to verify your account."
	MsgVerifySuccess      = "Email verified successfully. You can now log in."
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "invalid credentials"
	MsgEmailNotVerified   = "email not verified"
	MsgMissingVerifyToken = "Invalid verification token"
	MsgInvalidVerifyToken = "invalid or expired token"
	MsgBugNotFound        = "Bug not found"
)
