package model

import "github.com/google/uuid"

type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == "ADMIN" }
func (p Principal) IsStaff() bool { return p.Role == "STAFF" || p.IsAdmin() }
