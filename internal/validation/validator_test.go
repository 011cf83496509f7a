package validation_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/bookswapapp/bookswap-server/internal/errors"
	"github.com/bookswapapp/bookswap-server/internal/validation"
)

type TestRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Title    string `json:"title" validate:"required"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Username: "alice",
		Password: "password123",
		Title:    "Dune",
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				Username: "alice",
				Password: "password123",
				Title:    "",
			},
			wantField: "title",
		},
		{
			name: "username too short",
			req: TestRequest{
				Username: "al",
				Password: "password123",
				Title:    "Dune",
			},
			wantField: "username",
		},
		{
			name: "username not alphanumeric",
			req: TestRequest{
				Username: "alice!",
				Password: "password123",
				Title:    "Dune",
			},
			wantField: "username",
		},
		{
			name: "password too short",
			req: TestRequest{
				Username: "alice",
				Password: "short",
				Title:    "Dune",
			},
			wantField: "password",
		},
		{
			name: "password too long",
			req: TestRequest{
				Username: "alice",
				Password: string(make([]byte, 1025)),
				Title:    "Dune",
			},
			wantField: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
				fields, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should be a field error map") {
					assert.Contains(t, fields, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_NeFieldRule(t *testing.T) {
	v := validation.New()

	type swapRequest struct {
		RequestedBookID string `json:"requested_book_id" validate:"required"`
		OfferedBookID   string `json:"offered_book_id" validate:"required,nefield=RequestedBookID"`
	}

	err := v.Validate(swapRequest{
		RequestedBookID: "book-abc",
		OfferedBookID:   "book-abc",
	})
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			assert.Contains(t, fields, "offered_book_id")
			assert.Contains(t, fields["offered_book_id"], "must differ from")
		}
	}

	err = v.Validate(swapRequest{
		RequestedBookID: "book-abc",
		OfferedBookID:   "book-def",
	})
	assert.NoError(t, err)
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Username: "",
		Password: "password123",
		Title:    "Dune",
	}

	err := v.Validate(req)
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			// Should use JSON tag name "username", not struct field name "Username"
			assert.Contains(t, fields, "username")
			assert.NotContains(t, fields, "Username")
		}
	}
}
