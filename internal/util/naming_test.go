package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeToCamel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hotels", "Hotels"},
		{"opened_at", "OpenedAt"},
		{"id", "ID"},
		{"hotel_id", "HotelID"},
		{"api_url", "APIURL"},
		{"raw_json_payload", "RawJSONPayload"},
		{"  booking_db  ", "BookingDB"},
		{"double__underscore", "DoubleUnderscore"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SnakeToCamel(tc.in), "input %q", tc.in)
	}
}

func TestCamelToSnake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hotels", "hotels"},
		{"OpenedAt", "opened_at"},
		{"HotelID", "hotel_id"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CamelToSnake(tc.in), "input %q", tc.in)
	}
}
