// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package adapterrpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDialAdapterReturnsUsableClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := DialAdapter(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, c)

	var _ Client = c
	require.NoError(t, c.Close())
}

func TestToStructRoundTripsPromptFields(t *testing.T) {
	s, err := toStruct(map[string]interface{}{"foo": "bar", "n": 3.0})
	require.NoError(t, err)
	m := s.AsMap()
	require.Equal(t, "bar", m["foo"])
	require.Equal(t, 3.0, m["n"])
}

func TestToStructHandlesNilPrompt(t *testing.T) {
	s, err := toStruct(nil)
	require.NoError(t, err)
	require.Empty(t, s.AsMap())
}
