package dealerr

import "net/http"

// HTTPStatus maps an error kind to the status code handlers respond with.
// StaleVersion, InvalidState and ImmutableRecord are all conflicts; the
// machine-readable kind disambiguates them for clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidState, KindStaleVersion, KindImmutableRecord:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
