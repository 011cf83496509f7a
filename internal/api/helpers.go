package api

import (
	"encoding/json/v2"
	"net/http"

	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
)

// decodeJSON reads and decodes a JSON request body into dest.
func decodeJSON(r *http.Request, dest any) error {
	if err := json.UnmarshalRead(r.Body, dest); err != nil {
		return domainerrors.Validation("invalid JSON body").WithCause(err)
	}
	return nil
}
