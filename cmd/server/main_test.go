package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                "http://localhost:8080",
		":9000":           "http://localhost:9000",
		"0.0.0.0:8080":    "http://localhost:8080",
		"[::]:8080":       "http://localhost:8080",
		"10.0.0.5:8443":   "http://10.0.0.5:8443",
		"[::1]:8080":      "http://[::1]:8080",
		"  tabula:80  ":   "http://tabula:80",
		"unix-socket-ish": "http://unix-socket-ish",
	}
	for in, want := range cases {
		assert.Equal(t, want, localBaseURL(in), "listen addr %q", in)
	}
}
