package wire

import (
	"errors"
	"testing"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_DelimiterInFieldSurvives(t *testing.T) {
	job := domain.DeliveryJob{
		Channel:     domain.ChannelSMS,
		Recipient:   "+919876543210",
		DisplayName: "Asha | Rao",
		Code:        "123456",
		TaskID:      "01HZX",
		IsRetry:     true,
	}
	b, err := Encode(job)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"v":1`)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestDecode_LegacyPipeForm(t *testing.T) {
	got, err := Decode([]byte("asha@x.com|Asha|123456|task-1|1"))
	require.NoError(t, err)
	assert.Equal(t, "asha@x.com", got.Recipient)
	assert.Equal(t, "Asha", got.DisplayName)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, "task-1", got.TaskID)
	assert.True(t, got.IsRetry)
	assert.Empty(t, got.Channel)

	got, err = Decode([]byte("+919876543210|Asha|123456|task-2"))
	require.NoError(t, err)
	assert.False(t, got.IsRetry)
}

func TestDecode_Malformed(t *testing.T) {
	bodies := []string{
		"",
		"   ",
		"a|b|c",
		"a|b|c|d|e|f",
		"|Asha|123456|task",
		"+91|Asha||task",
		"+91|Asha|123|",
		"+91|Asha|123|task|yes",
		`{"v":2,"recipient":"x","code":"1","task_id":"t"}`,
		`{"v":1,"channel":"fax","recipient":"x","code":"1","task_id":"t"}`,
		`{"v":1,"recipient":"x","code":"1"}`,
		`{not json`,
	}
	for _, b := range bodies {
		_, err := Decode([]byte(b))
		require.Error(t, err, b)
		assert.True(t, errors.Is(err, domain.ErrMalformedMessage), b)
	}
}

func TestEncode_RejectsIncompleteJob(t *testing.T) {
	_, err := Encode(domain.DeliveryJob{Recipient: "x", Code: "1"})
	assert.True(t, errors.Is(err, domain.ErrMalformedMessage))
}
