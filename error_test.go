package crawlfront_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/crawlfront"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := crawlfront.Errorf(crawlfront.EBINDING, "callback %q not found", "parse9")

	assert.Equal(t, crawlfront.EBINDING, crawlfront.ErrorCode(err))
	assert.Equal(t, "callback \"parse9\" not found", crawlfront.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, crawlfront.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, crawlfront.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("add seeds: %w", crawlfront.Errorf(crawlfront.EALREADYBOUND, "session already bound"))

	assert.Equal(t, crawlfront.EALREADYBOUND, crawlfront.ErrorCode(err))
	assert.Equal(t, "session already bound", crawlfront.ErrorMessage(err))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	err := errors.New("disk on fire")

	assert.Equal(t, crawlfront.EINTERNAL, crawlfront.ErrorCode(err))
	assert.Equal(t, "Internal error.", crawlfront.ErrorMessage(err))
}
