package repository

import (
	"fmt"

	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
)

var (
	// ErrDuplicateAttempt means the (user, module, attempt_number) triple is already taken.
	ErrDuplicateAttempt = fmt.Errorf("%w: attempt number already taken", apperrors.ErrConflict)
	// ErrDuplicateCertificate means either the user already holds a valid certificate
	// or the verification code collided.
	ErrDuplicateCertificate = fmt.Errorf("%w: certificate already exists", apperrors.ErrConflict)
	// ErrDuplicatePhone means the phone number is already registered.
	ErrDuplicatePhone = fmt.Errorf("%w: phone number already registered", apperrors.ErrConflict)
)
