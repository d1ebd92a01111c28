package weft

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{&SyntaxError{Message: "x", Position: 3}, ErrKindSyntax},
		{&ResolutionError{Path: "a.b"}, ErrKindResolution},
		{&TypeError{Path: "a", Message: "not a sequence"}, ErrKindType},
		{&ModuleError{Module: "m", Phase: PhaseRender, Cause: errors.New("boom")}, ErrKindModule},
		{errors.New("anything else"), ErrKindFatal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, kindOf(tt.err), "%v", tt.err)
	}
}

func TestErrorPositions(t *testing.T) {
	assert.Equal(t, 7, positionOf(&SyntaxError{Position: 7}))
	assert.Equal(t, -1, positionOf(&ResolutionError{Path: "x"}))
}

func TestModuleErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ModuleError{Module: "m", Phase: PhasePreparse, Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "preparse")
}

func TestErrorCollector(t *testing.T) {
	c := NewErrorCollector()
	assert.Nil(t, c.Err())
	assert.Empty(t, c.All())

	c.AddError(&ResolutionError{Path: "a"}, "u1", SeverityRecoverable)
	c.AddError(&SyntaxError{Message: "bad", Position: 2}, "u2", SeverityFatal)
	c.AddError(nil, "u3", SeverityRecoverable)

	records := c.All()
	require.Len(t, records, 2)
	assert.Equal(t, ErrKindResolution, records[0].Kind)
	assert.Equal(t, "u1", records[0].UnitID)
	assert.Equal(t, ErrKindSyntax, records[1].Kind)
	assert.Equal(t, 2, records[1].Position)
	assert.Equal(t, SeverityFatal, records[1].Severity)

	require.Error(t, c.Err())

	c.Reset()
	assert.Empty(t, c.All())
	assert.Nil(t, c.Err())
}

func TestErrorCollectorConcurrentAdd(t *testing.T) {
	c := NewErrorCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddError(&ResolutionError{Path: "p"}, "u", SeverityRecoverable)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}
