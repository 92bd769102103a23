package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type ContainerParams struct {
	Name  string
	Image string
	// Port is the container port to map, ex. "5432".
	Port string
	Env  map[string]string
	// if unspecified, it will wait for the port to listen
	WaitFor wait.Strategy
}

type ContainerResult struct {
	Host string
	Port int
}

// Addr returns host:port.
func (r ContainerResult) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StartContainer starts a throwaway container for an integration test, the
// test is skipped under -short or when no container runtime is reachable.
func StartContainer(t testing.TB, params ContainerParams) (ContainerResult, func()) {
	t.Helper()
	if testing.Short() {
		t.Skipf("skipping %s container in short mode", params.Name)
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exposed := fmt.Sprintf("%s/tcp", params.Port)
	waitFor := params.WaitFor
	if waitFor == nil {
		waitFor = wait.ForListeningPort(nat.Port(exposed))
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        params.Image,
				ExposedPorts: []string{exposed},
				Env:          params.Env,
				WaitingFor:   waitFor,
			},
		},
	)
	if err != nil {
		t.Skipf("%s container unavailable: %s", params.Name, err)
	}
	cleanup := func() {
		container.Terminate(context.Background())
	}

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, nat.Port(params.Port))
	if err != nil {
		cleanup()
		t.Fatal(err)
	}

	return ContainerResult{Host: host, Port: port.Int()}, cleanup
}
