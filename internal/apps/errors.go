package apps

import (
	"fmt"

	"github.com/Algorisys-Technologies/app-portal/internal/apperr"
)

var (
	ErrNotFound         = fmt.Errorf("%w: application not found", apperr.ErrNotFound)
	ErrImageNotFound    = fmt.Errorf("%w: application has no image", apperr.ErrNotFound)
	ErrImageTooLarge    = fmt.Errorf("%w: image exceeds the upload limit", apperr.ErrTooLarge)
	ErrUnsupportedImage = fmt.Errorf("%w: file is not a supported image", apperr.ErrInvalidArgument)
	ErrUnknownOrg       = fmt.Errorf("%w: organization does not exist", apperr.ErrUnauthenticated)
)
