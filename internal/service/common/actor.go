//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the actor of a request.
const (
	MetadataHostname = "x-catpoint-hostname"
	MetadataUsername = "x-catpoint-username"
)

// Actor identifies the host and user issuing commands.
type Actor struct {
	Hostname string
	Username string
}

// String returns user@host.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for audit trail.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// ActorToOutgoingContext attaches the actor to outgoing gRPC metadata.
func ActorToOutgoingContext(ctx context.Context, actor Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		MetadataHostname, actor.Hostname,
		MetadataUsername, actor.Username,
	)
}

// ActorFromIncomingContext reads the actor sent by the client, if any.
func ActorFromIncomingContext(ctx context.Context) (Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Actor{}, false
	}

	hostnames := md.Get(MetadataHostname)
	usernames := md.Get(MetadataUsername)

	if len(hostnames) == 0 || len(usernames) == 0 {
		return Actor{}, false
	}

	return Actor{
		Hostname: hostnames[0],
		Username: usernames[0],
	}, true
}
