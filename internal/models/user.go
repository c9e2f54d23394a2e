package models

import "time"

// User mirrors an identity-provider account. Rows are created the first time
// the user writes to their history and are not updated afterwards.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	GivenName  string    `json:"givenName"`
	FamilyName string    `json:"familyName"`
	Picture    string    `json:"picture"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
