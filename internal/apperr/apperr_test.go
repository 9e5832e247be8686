package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("load template: %w", NotFound("template %d not found", 4))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, http.StatusNotFound, KindOf(err).HTTPStatus())
	assert.Equal(t, "template 4 not found", PublicMessage(err))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("disk I/O error at page 7")
	err := Internal("materialize", cause)

	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "internal error", PublicMessage(err))
	assert.Equal(t, "internal error", PublicMessage(cause))
	assert.Equal(t, http.StatusInternalServerError, KindOf(cause).HTTPStatus())
}

func TestInternalKeepsClassifiedErrors(t *testing.T) {
	denied := PermissionDenied("caller is not a member of group %d", 2)
	assert.Same(t, denied, Internal("generate", denied))
	assert.Nil(t, Internal("noop", nil))
}
