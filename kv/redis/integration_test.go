//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RedisSuite struct {
	suite.Suite
	container testcontainers.Container
	addr      string
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	s.Require().NoError(err, "failed to start container")
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "6379")
	s.Require().NoError(err)

	s.addr = fmt.Sprintf("%s:%s", host, port.Port())
}

func (s *RedisSuite) TearDownSuite() {
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Logf("failed to terminate container: %v", err)
		}
	}
}

func (s *RedisSuite) newClient() *Client {
	client, err := Connect(context.Background(), Config{Addr: s.addr})
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func (s *RedisSuite) TestSetGetDelete() {
	ctx := context.Background()
	client := s.newClient()

	s.Require().NoError(client.Set(ctx, "emails:tpl:header", "<html>", time.Minute))

	val, err := client.Get(ctx, "emails:tpl:header")
	s.Require().NoError(err)
	s.Equal("<html>", val)

	s.Require().NoError(client.Delete(ctx, "emails:tpl:header"))

	_, err = client.Get(ctx, "emails:tpl:header")
	s.True(IsNotFound(err))
}

func (s *RedisSuite) TestSet_Expires() {
	ctx := context.Background()
	client := s.newClient()

	s.Require().NoError(client.Set(ctx, "short", "v", 100*time.Millisecond))
	s.Eventually(func() bool {
		_, err := client.Get(ctx, "short")
		return IsNotFound(err)
	}, 3*time.Second, 50*time.Millisecond)
}

func (s *RedisSuite) TestClose_Twice() {
	client, err := Connect(context.Background(), Config{Addr: s.addr})
	s.Require().NoError(err)

	s.NoError(client.Close())
	s.NoError(client.Close())
}
