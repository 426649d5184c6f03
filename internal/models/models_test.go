package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		input    string
		expected Money
		wantErr  bool
	}{
		{"19.99", 1999, false},
		{"19.9", 1990, false},
		{"19", 1900, false},
		{".5", 50, false},
		{"0", 0, false},
		{"99999999.99", MaxMoney, false},
		{"100000000", 0, true},
		{"1.999", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"10.-1", 0, true},
		{"1.-5", 0, true},
		{"1.+5", 0, true},
		{"+1", 0, true},
		{"1.5e", 0, true},
		{"1 .5", 0, true},
		{".", 0, true},
		{"1.", 100, false},
		{"", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseMoney(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money(1905))
	require.NoError(t, err)
	assert.Equal(t, `"19.05"`, string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &m))
	assert.Equal(t, Money(1250), m)
	require.NoError(t, json.Unmarshal([]byte(`"3.10"`), &m))
	assert.Equal(t, Money(310), m)
	assert.Error(t, json.Unmarshal([]byte(`"3.105"`), &m))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(int64(19)))
	assert.Equal(t, Money(1900), m)
	require.NoError(t, m.Scan(19.99))
	assert.Equal(t, Money(1999), m)
	require.NoError(t, m.Scan([]byte("7.50")))
	assert.Equal(t, Money(750), m)
	assert.Error(t, m.Scan(true))

	v, err := Money(750).Value()
	require.NoError(t, err)
	assert.Equal(t, "7.50", v)
}

func TestStringListScanValue(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, StringList{"a", "b"}, l)

	require.NoError(t, l.Scan(nil))
	assert.Equal(t, StringList{}, l)

	require.NoError(t, l.Scan([]byte("null")))
	assert.Equal(t, StringList{}, l)

	assert.Error(t, l.Scan(`not json`))
	assert.Error(t, l.Scan(42))

	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	b, err := json.Marshal(struct {
		Tags StringList `json:"tags"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, string(b))
}

func TestTranscodedKey(t *testing.T) {
	assert.Equal(t, "videos/abc_transcoded.mp4", TranscodedKey("videos/abc.mov"))
	assert.Equal(t, "videos/abc_transcoded.mp4", TranscodedKey("videos/abc"))

	v := &Video{VideoFile: TranscodedKey("videos/abc.mp4")}
	assert.True(t, v.IsTranscoded())
	v.VideoFile = "videos/abc.mp4"
	assert.False(t, v.IsTranscoded())
}

func TestOTPIsValid(t *testing.T) {
	now := time.Now()
	otp := &PhoneNumberOTP{ExpiresAt: now.Add(time.Minute)}
	assert.True(t, otp.IsValid(now))
	assert.False(t, otp.IsValid(now.Add(2*time.Minute)))
}
