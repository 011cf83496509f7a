// Package service implements the application's business logic on top of the
// store layer: accounts, the book catalog, the exchange coordinator, and the
// match engine.
package service

import "github.com/bookswapapp/bookswap-server/internal/validation"

// validate is the shared request validator for all services.
var validate = validation.New()
