package apperror

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestBinding(t *testing.T) {
	type request struct {
		Name  string `binding:"required"`
		Email string `binding:"omitempty,email"`
	}
	v := validator.New()
	v.SetTagName("binding")

	err := Binding(v.Struct(request{Email: "nope"}))
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "name failed on required; email failed on email", err.Message)

	var out struct {
		Amount int64 `json:"amount"`
	}
	err = Binding(json.Unmarshal([]byte(`{"amount":"ten"}`), &out))
	assert.Equal(t, "amount has the wrong type", err.Message)

	err = Binding(errors.New("unexpected EOF at offset 12"))
	assert.Equal(t, "malformed request", err.Message)
}

func TestGatewayErrorHidesDetail(t *testing.T) {
	err := NewGateway(errors.New("401 invalid access token"))
	assert.Equal(t, KindGateway, KindOf(err))
	assert.Equal(t, "payment provider error", err.Message)
	assert.Len(t, err.CorrelationID, 26)
	assert.True(t, Is(err, KindGateway))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}
