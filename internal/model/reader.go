package model

import "time"

// Reader is identified by email address and created on first upload or subscription.
type Reader struct {
	Email      string    `json:"email"`
	SignupDate time.Time `json:"signup_date"`
	IsPremium  bool      `json:"is_premium"`
}
