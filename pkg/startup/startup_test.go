package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_StartsInDependencyOrder(t *testing.T) {
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	s := New(testLogger(), 1)
	s.AddDependency(NewFuncDependency("server", []string{"db", "cache"}, record("server"), nil))
	s.AddDependency(NewFuncDependency("db", nil, record("db"), nil))
	s.AddDependency(NewFuncDependency("cache", nil, record("cache"), nil))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"db", "cache", "server"}, order)
}

func TestStartup_RetriesFailedDependency(t *testing.T) {
	attempts := 0
	s := New(testLogger(), 3)
	s.AddDependency(NewFuncDependency("flaky", nil, func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("not ready")
		}
		return nil
	}, nil))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestStartup_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	s := New(testLogger(), 2)
	s.AddDependency(NewFuncDependency("broken", nil, func(context.Context) error {
		attempts++
		return errors.New("always fails")
	}, nil))

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestStartup_StopsInReverseOrder(t *testing.T) {
	var stops []string
	stopRecord := func(name string) func(context.Context) error {
		return func(context.Context) error {
			stops = append(stops, name)
			return nil
		}
	}

	s := New(testLogger(), 1)
	s.AddDependency(NewFuncDependency("db", nil, nil, stopRecord("db")))
	s.AddDependency(NewFuncDependency("server", []string{"db"}, nil, stopRecord("server")))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"server", "db"}, stops)
}

func TestStartup_StopSkipsNeverStarted(t *testing.T) {
	stopped := false
	s := New(testLogger(), 1)
	s.AddDependency(NewFuncDependency("unused", nil, func(context.Context) error {
		return errors.New("never starts")
	}, func(context.Context) error {
		stopped = true
		return nil
	}))

	require.Error(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, stopped)
}
