package forge

import (
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

var (
	// ErrRepositoryExists signals that the requested repository name is taken.
	ErrRepositoryExists = errors.NewError(errors.CategoryAlreadyExists, "repository name already exists").Build()

	// ErrPagesAlreadyEnabled signals that a Pages site is already configured.
	ErrPagesAlreadyEnabled = errors.NewError(errors.CategoryAlreadyExists, "pages site already enabled").WithSeverity(errors.SeverityInfo).Build()

	// ErrAuthRequired signals that no token was configured.
	ErrAuthRequired = errors.AuthError("authentication required for forge client").Build()
)
