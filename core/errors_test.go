package core

import (
	"testing"

	"github.com/DomeLiquid/alphalend/wad"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{ErrPoolNotDepositable, KindValidation},
		{errors.Wrap(ErrNotOwner, "set pool status"), KindAuthorization},
		{errors.Wrapf(ErrAccountNotHealthy, "borrow %d", 1), KindHealthCheck},
		{ErrInsufficientCollateral, KindCollateral},
		{ErrPoolExists, KindState},
		{errors.Wrap(wad.ErrDivisionByZero, "utilization"), KindMath},
		{errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
