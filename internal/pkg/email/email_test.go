package email

import (
	"errors"
	"testing"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_TrimsValidAddress(t *testing.T) {
	got, err := Normalize("  asha@x.com ")
	require.NoError(t, err)
	assert.Equal(t, "asha@x.com", got)
}

func TestNormalize_RejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "asha", "asha@", "asha@x", "@x.com", "a sha@x.com", "asha@x.c"} {
		_, err := Normalize(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidEmailFormat), in)
	}
}

func TestLooks(t *testing.T) {
	assert.True(t, Looks("asha@x.com"))
	assert.False(t, Looks("+919876543210"))
}
