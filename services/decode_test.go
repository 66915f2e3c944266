package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCreditsResponseAliases(t *testing.T) {
	cases := []struct {
		name string
		body string
		want CreditBalance
	}{
		{"short names", `{"find": 10, "verify": 20}`, CreditBalance{Find: 10, Verify: 20}},
		{"long names", `{"credits_find": 10, "credits_verify": 20}`, CreditBalance{Find: 10, Verify: 20}},
		{"nested under data", `{"data": {"find": 3, "credits_verify": 4}}`, CreditBalance{Find: 3, Verify: 4}},
		{"zero balances", `{"find": 0, "verify": 0}`, CreditBalance{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeCreditsResponse([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeCreditsResponseMissingFields(t *testing.T) {
	_, err := decodeCreditsResponse([]byte(`{"unrelated": true}`))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "user/credits", decodeErr.Endpoint)
}

func TestDecodeFindBulkResponse(t *testing.T) {
	body := `{"success": true, "data": {"results": [{"domain": "x.com", "email": "a@x.com", "status": "found"}], "totalCredits": 1}}`
	data, err := decodeFindBulkResponse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, data.TotalCredits)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "a@x.com", data.Results[0].Email)

	_, err = decodeFindBulkResponse([]byte(`{"success": true}`))
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	_, err = decodeFindBulkResponse([]byte(`{"success": false, "message": "nope"}`))
	assert.Error(t, err)
	assert.NotErrorAs(t, err, &decodeErr, "a declared failure is not a shape mismatch")
}

func TestDecodeRefreshResponse(t *testing.T) {
	creds, err := decodeRefreshResponse([]byte(`{"data": {"access_token": "a", "refresh_token": "r"}}`))
	require.NoError(t, err)
	assert.Equal(t, Credentials{AccessToken: "a", RefreshToken: "r"}, creds)

	_, err = decodeRefreshResponse([]byte(`{"data": {}}`))
	assert.Error(t, err)

	_, err = decodeRefreshResponse([]byte(`{}`))
	assert.Error(t, err)
}

func TestAuthRejected(t *testing.T) {
	assert.True(t, authRejected([]byte(`{"jwtError": true}`)))
	assert.True(t, authRejected([]byte(`{"success": false}`)))
	assert.True(t, authRejected([]byte(`{"message": "Unauthorized"}`)))
	assert.False(t, authRejected([]byte(`{"success": true, "data": {}}`)))
	assert.False(t, authRejected([]byte(`{}`)))
	assert.False(t, authRejected([]byte(`not json`)))
}
