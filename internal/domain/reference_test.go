package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReference_FieldAndTag(t *testing.T) {
	var r Reference
	assert.Equal(t, "", r.Field("title"))
	assert.Equal(t, "", r.TagName())

	r.Fields = map[string]string{"title": "A Great Paper"}
	r.Tag = &Tag{Name: "reading"}
	assert.Equal(t, "A Great Paper", r.Field("title"))
	assert.Equal(t, "reading", r.TagName())
}

func TestReference_NewerThan(t *testing.T) {
	now := time.Now()
	older := &Reference{CreatedAt: now, Seq: 1}
	tie := &Reference{CreatedAt: now, Seq: 2}
	newer := &Reference{CreatedAt: now.Add(time.Second), Seq: 0}

	assert.True(t, tie.NewerThan(older))
	assert.False(t, older.NewerThan(tie))
	assert.True(t, newer.NewerThan(tie))
}
