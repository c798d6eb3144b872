package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForExp(t *testing.T) {
	cases := []struct {
		exp   int
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{1000, 11},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, LevelForExp(c.exp), "exp=%d", c.exp)
	}
}

func TestLevelForExpNegativeClamped(t *testing.T) {
	assert.Equal(t, 1, LevelForExp(-50))
}
