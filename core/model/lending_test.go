package model

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
)

func TestPersonTypeUnmarshal(t *testing.T) {
	var l Lending
	err := json.Unmarshal([]byte(`{"person_type":"student","person_id":1,"book_id":2}`), &l)
	assert.NoError(t, err)
	assert.Equal(t, PersonStudent, l.PersonType)

	err = json.Unmarshal([]byte(`{"person_type":"teacher","person_id":1,"book_id":2}`), &l)
	assert.NoError(t, err)
	assert.Equal(t, PersonTeacher, l.PersonType)
}

func TestPersonTypeUnmarshal_Invalid(t *testing.T) {
	var l Lending
	err := json.Unmarshal([]byte(`{"person_type":"librarian","person_id":1,"book_id":2}`), &l)
	assert.Error(t, err)
}
