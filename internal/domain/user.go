package domain

import "time"

// User is a ticket buyer whose phone and email were confirmed through the OTP flow.
type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          string    `json:"phone_no" dynamodbav:"phone"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	PhoneConfirmed bool      `json:"phone_confirmed" dynamodbav:"phone_confirmed"`
	Enable         int       `json:"enable" dynamodbav:"enable"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
