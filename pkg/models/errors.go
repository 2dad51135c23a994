package models

import "errors"

var (
	// ErrNoIdentity means neither an id nor a name could be resolved for a
	// product element.
	ErrNoIdentity = errors.New("product has no identity signal")

	// ErrNoContainer means a product element has no recognized ancestor item
	// container.
	ErrNoContainer = errors.New("no product container found")

	// ErrEmptyDocument means the submitted page markup parsed to nothing
	// trackable.
	ErrEmptyDocument = errors.New("empty document")

	// ErrPageNotFound means the remote storefront page could not be
	// retrieved.
	ErrPageNotFound = errors.New("page not found")
)
