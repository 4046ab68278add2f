package domain

import (
	"github.com/google/uuid"
)

// User is the identity record for a participant, as stored by the identity
// service. The loader only reads these; account management lives elsewhere.
type User struct {
	ID       uuid.UUID `json:"id" bson:"_id"`
	Username string    `json:"username" bson:"username"`
	Rating   int       `json:"rating" bson:"rating"`
}
