// Package services holds the business rules around community permissions.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into chat replies or HTTP status codes is performed by the
// platform adapter and the HTTP handlers respectively.
package services

import "errors"

// Authorization errors, one per required level.
var (
	// ErrNotOwner is returned when an owner-only operation is attempted by
	// anyone else.
	ErrNotOwner = errors.New("only the bot owner can do this")

	// ErrNotAdmin is returned when the actor is neither a community admin nor
	// an owner.
	ErrNotAdmin = errors.New("only relay admins or the bot owner can do this")

	// ErrNotStaff is returned when the actor holds no role in the community.
	ErrNotStaff = errors.New("only relay staff, admins, or the bot owner can do this")
)

// Membership errors.
var (
	// ErrAlreadyListed is returned when adding a user that already holds the role.
	ErrAlreadyListed = errors.New("user already listed")

	// ErrNotListed is returned when removing a user that does not hold the role.
	ErrNotListed = errors.New("user not listed")

	// ErrInvalidID is returned when a community, channel or user id is not a
	// platform snowflake.
	ErrInvalidID = errors.New("invalid id")
)
