package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCRMID(t *testing.T) {
	assert.True(t, ValidCRMID("ABCDEF123456"))
	assert.True(t, ValidCRMID("xxABCDEF123456"))
	assert.False(t, ValidCRMID("abcdef123456"))
	assert.False(t, ValidCRMID("ABC123"))
}

func TestParseSearchDomain(t *testing.T) {
	d, err := ParseSearchDomain("doctor")
	assert.NoError(t, err)
	assert.Equal(t, SearchDoctors, d)

	_, err = ParseSearchDomain("spaceship")
	assert.ErrorIs(t, err, ErrUnknownSearchDomain)
	assert.Len(t, SearchDomains(), 10)
}
