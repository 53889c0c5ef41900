package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errMissing = errors.New("missing")

func TestStatusAndMessage(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "bad request", err: BadRequest(errMissing, "Lead IDs not found: 3"), wantStatus: http.StatusBadRequest, wantMsg: "Lead IDs not found: 3"},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", NotFound(errMissing, "Not found.")), wantStatus: http.StatusNotFound, wantMsg: "Not found."},
		{name: "unauthorized", err: Unauthorized(nil, "Invalid credentials"), wantStatus: http.StatusUnauthorized, wantMsg: "Invalid credentials"},
		{name: "empty app error", err: &AppError{}, wantStatus: http.StatusInternalServerError, wantMsg: SystemErrorMessage},
		{name: "plain error", err: errMissing, wantStatus: http.StatusInternalServerError, wantMsg: SystemErrorMessage},
		{name: "redis", err: WrapRedis(errMissing), wantStatus: http.StatusBadGateway, wantMsg: RedisErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := StatusAndMessage(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := BadRequest(errMissing, "Select at least one lead to create a campaign.")
	assert.ErrorIs(t, err, errMissing)
	assert.Equal(t, "Select at least one lead to create a campaign.: missing", err.Error())
	assert.Equal(t, "Not found.", NotFound(nil, "Not found.").Error())
	assert.Nil(t, WrapRedis(nil))
}
