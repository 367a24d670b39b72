package repository

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
)

func TestBuildConditionsAppliesAliases(t *testing.T) {
	qb := NewQueryBuilder()
	assert.True(t, qb.IsEmpty())

	qb.AddCondition("status", "AVAILABLE")
	qb.AddCondition("batch_number", "B-12")

	got := qb.BuildConditions(map[string]string{"status": "v.status"})

	assert.False(t, qb.IsEmpty())
	assert.Equal(t, goqu.Ex{"v.status": "AVAILABLE", "batch_number": "B-12"}, got)
}
