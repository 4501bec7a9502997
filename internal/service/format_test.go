package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents    int64
		expected string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{12000, "R$ 120,00"},
		{144000, "R$ 1.440,00"},
		{123456789, "R$ 1.234.567,89"},
		{-12050, "-R$ 120,50"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, formatBRL(tc.cents), "cents=%d", tc.cents)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "01/09/2026", formatDate(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
}
