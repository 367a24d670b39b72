package custom_error

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"version conflict", VersionConflict("vial", 1, 1, 2), http.StatusConflict},
		{"invalid state", InvalidState("transfer", 4, "not pending"), http.StatusConflict},
		{"invalid vial", InvalidVial([]int{3}, "not available"), http.StatusConflict},
		{"not found", NotFound("drug", 9), http.StatusNotFound},
		{"validation", Validation("quantity", "must be positive"), http.StatusUnprocessableEntity},
		{"not authorized", NotAuthorized("self approval"), http.StatusForbidden},
		{"wrapped", fmt.Errorf("use vial: %w", NotFound("vial", 1)), http.StatusNotFound},
		{"unique violation", WrapDBError("duplicate", "23505"), http.StatusUnprocessableEntity},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestDomainErrorMessage(t *testing.T) {
	err := VersionConflict("vial", 7, 1, 3)

	assert.True(t, errors.Is(err, ErrVersionConflict))
	assert.Equal(t, "version conflict: vial 7: expected version 1, current version is 3", err.Error())
	assert.Equal(t, "not found: location 2", NotFound("location", 2).Error())
}

func TestFromDBErrorPassesThroughUnknownErrors(t *testing.T) {
	plain := errors.New("connection reset")

	assert.Same(t, plain, FromDBError(plain))
	assert.Nil(t, FromDBError(nil))
}
