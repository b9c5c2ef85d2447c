//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
}

// TestActorMetadata checks the actor survives the outgoing to incoming hop.
func TestActorMetadata(t *testing.T) {
	t.Parallel()

	_, ok := ActorFromIncomingContext(context.Background())
	require.False(t, ok)

	actor := Actor{Hostname: "kitchen", Username: "bob"}
	outgoing := ActorToOutgoingContext(context.Background(), actor)

	md, ok := metadata.FromOutgoingContext(outgoing)
	require.True(t, ok)

	got, ok := ActorFromIncomingContext(metadata.NewIncomingContext(context.Background(), md))
	require.True(t, ok)
	require.Equal(t, actor, got)
	require.Equal(t, "bob@kitchen", got.String())
}
