package serviceauth

import "errors"

var ErrUnauthenticated = errors.New("service auth: unauthenticated")
