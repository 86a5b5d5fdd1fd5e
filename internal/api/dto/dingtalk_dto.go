package dto

import "time"

// VerifyUserRequest is the body of POST /dingtalk/verifyUser.
type VerifyUserRequest struct {
	Code string `json:"code"`
}

// VerifiedUser is the identity payload returned after verification.
type VerifiedUser struct {
	UserID       string    `json:"userid"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// VerifyUserResponse is the envelope of POST /dingtalk/verifyUser.
type VerifyUserResponse struct {
	Success bool         `json:"success"`
	Code    int          `json:"code"`
	Msg     string       `json:"msg"`
	Data    VerifiedUser `json:"data"`
}
