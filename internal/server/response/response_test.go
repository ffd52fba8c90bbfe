package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&backend.Error{Kind: backend.KindInvalidRequest}, http.StatusBadRequest},
		{backend.InvalidMode("bogus"), http.StatusBadRequest},
		{backend.NotFound("bar"), http.StatusNotFound},
		{backend.Unsupported("bar", "images"), http.StatusUnprocessableEntity},
		{backend.Unconfigured("no url"), http.StatusServiceUnavailable},
		{backend.Failure("bar", "boom", nil), http.StatusBadGateway},
		{errors.Wrap(backend.Timeout("bar", nil), "wrapped"), http.StatusGatewayTimeout},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.err), "error %v", c.err)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteError(w, http.StatusTeapot, "nope"))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"nope"}`, w.Body.String())
}
