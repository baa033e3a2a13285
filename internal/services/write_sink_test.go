package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"geosafe/internal/domain/entities"
)

func TestWriteSinks_Publish(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("down")}
	sinks := WriteSinks{broken, ok}

	err := sinks.Publish(context.Background(), entities.ReportWrite{ReportID: "r1"})
	assert.EqualError(t, err, "down")
	assert.Len(t, ok.Writes(), 1, "later sinks still receive the write")
	assert.Len(t, broken.Writes(), 1)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Flash flood", "Flash flood"},
		{"<script>alert(1)</script>Fire", "Fire"},
		{"<b>Tree</b> & pole", "Tree & pole"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, plainText(tt.in))
	}
}
