package core

import (
	"math"
	"time"
)

// User represents a registered account in the catalog
//
// The email doubles as the username
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the listing projection of a User
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Claim is a typed assertion attached to a user, e.g. ("is-admin", "true")
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Credentials is the body accepted by register and login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EditClaimInput is the body accepted by make-admin and remove-admin
type EditClaimInput struct {
	Email string `json:"email"`
}

// AuthResult is returned to the client after register or login
type AuthResult struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

const (
	DefaultPage           = 1
	DefaultRecordsPerPage = 10
	MaxRecordsPerPage     = 50
)

// PageRequest selects a window of a listing
type PageRequest struct {
	Page           int `json:"page"`
	RecordsPerPage int `json:"recordsPerPage"`
}

// Normalize fills defaults and clamps out of range values. Page is capped so
// that Offset fits in an int; a capped page is still past the end of any
// listing.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.RecordsPerPage < 1 {
		p.RecordsPerPage = DefaultRecordsPerPage
	}
	if p.RecordsPerPage > MaxRecordsPerPage {
		p.RecordsPerPage = MaxRecordsPerPage
	}
	if skipped := math.MaxInt / p.RecordsPerPage; p.Page-1 > skipped {
		p.Page = skipped + 1
	}
	return p
}

// Offset is the number of records skipped before this page
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.RecordsPerPage
}

// Limit is the page size after normalization
func (p PageRequest) Limit() int {
	return p.Normalize().RecordsPerPage
}
