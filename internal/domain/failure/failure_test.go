package failure

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

var errTestMissing = New(KindNotFound, "thing_not_found", "thing not found")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode string
		wantMsg  string
	}{
		{
			name:     "sentinel",
			err:      errTestMissing,
			wantKind: KindNotFound,
			wantCode: "thing_not_found",
			wantMsg:  "thing not found",
		},
		{
			name:     "wrapped sentinel keeps classification",
			err:      errors.Wrap(errTestMissing, "load thing"),
			wantKind: KindNotFound,
			wantCode: "thing_not_found",
			wantMsg:  "thing not found",
		},
		{
			name:     "plain error is internal",
			err:      errors.New("connection reset"),
			wantKind: KindInternal,
			wantCode: "internal",
			wantMsg:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.wantCode, CodeOf(tt.err))
			assert.Equal(t, tt.wantMsg, MessageOf(tt.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "input_invalid", KindInputInvalid.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "domain_conflict", KindConflict.String())
	assert.Equal(t, "external_failure", KindExternal.String())
	assert.Equal(t, "internal", KindInternal.String())
}
