package access

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/students", nil)
	r.SetBasicAuth("42", "some-secret")
	cred, err := CredentialsFromRequest(r)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), cred.TokenID)
	assert.Equal(t, "some-secret", cred.Secret)
}

func TestCredentialsFromRequest_MissingHeader(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/students", nil)
	_, err := CredentialsFromRequest(r)
	assert.Error(t, err)
}

func TestCredentialsFromRequest_NonNumericTokenID(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/students", nil)
	r.SetBasicAuth("not-a-number", "some-secret")
	_, err := CredentialsFromRequest(r)
	assert.Error(t, err)
}

func TestSchoolIDFromContext(t *testing.T) {
	ctx := context.Background()
	_, ok := SchoolIDFromContext(ctx)
	assert.False(t, ok)

	ctx = ContextWithSchoolID(ctx, int64(7))
	id, ok := SchoolIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
