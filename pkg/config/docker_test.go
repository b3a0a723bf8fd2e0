package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostForDocker_RemoteHostsUnchanged(t *testing.T) {
	for _, host := range []string{"xy12345.snowflakecomputing.com", "10.0.0.7", "host.docker.internal", "neo4j"} {
		assert.Equal(t, host, ResolveHostForDocker(host))
	}
}

func TestResolveHostForDocker_Loopback(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if IsRunningInDocker() {
			assert.Equal(t, "host.docker.internal", ResolveHostForDocker(host))
		} else {
			assert.Equal(t, host, ResolveHostForDocker(host))
		}
	}
}
