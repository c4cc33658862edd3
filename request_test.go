package scry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fwojciec/scry"
)

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     scry.Request
		wantErr bool
	}{
		{"question only", scry.Request{Question: "q"}, false},
		{"empty", scry.Request{}, true},
		{"resume without session", scry.Request{Resume: true}, true},
		{"resume with session and no question", scry.Request{Resume: true, SessionID: "s-1"}, false},
		{"valid mode", scry.Request{Question: "q", Mode: scry.ModeSQLOnly}, false},
		{"unknown mode", scry.Request{Question: "q", Mode: "yolo"}, true},
		{"research intent", scry.Request{Question: "q", ForceIntent: scry.IntentResearch}, false},
		{"unknown intent", scry.Request{Question: "q", ForceIntent: "mystery"}, true},
		{"image missing mime type", scry.Request{Question: "q", Images: []scry.ImageAttachment{{Data: "aGk="}}}, true},
		{"valid image", scry.Request{Question: "q", Images: []scry.ImageAttachment{{Data: "aGk=", MimeType: "image/png"}}}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, scry.ErrValidation), "want validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
