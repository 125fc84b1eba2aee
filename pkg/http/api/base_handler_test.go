package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseHandler_WriteJSON(t *testing.T) {
	handler := &BaseHandler{}
	response := httptest.NewRecorder()

	handler.WriteJSON(response, struct {
		Name string `json:"name"`
	}{Name: "qscanner"}, http.StatusOK)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, MimeTypeJSON, response.Header().Get(HeaderContentType))
	assert.JSONEq(t, `{"name": "qscanner"}`, response.Body.String())
}

func TestBaseHandler_WriteJSONError(t *testing.T) {
	handler := &BaseHandler{}
	response := httptest.NewRecorder()

	handler.WriteJSONError(response, Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "missing images",
	})

	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.JSONEq(t, `{"error": {"message": "missing images"}}`, response.Body.String())
}
