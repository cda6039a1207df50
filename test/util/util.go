// Package util provides helpers shared by the container backed tests.
package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// FreeAddr returns a loopback address with a port nobody listens on.
func FreeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	return addr, ln.Close()
}

// poll calls probe until it succeeds or ctx is done.
func poll(ctx context.Context, what string, probe func() bool) error {
	for {
		if probe() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// WaitForMetric polls the metrics URL until substr shows up in the output.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	return poll(ctx, fmt.Sprintf("metric %q not found", substr), func() bool {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), substr)
	})
}

// StartMosquitto runs an anonymous Mosquitto broker in a container and returns
// its URL with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	broker, err := endpoint(ctx, cont)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := poll(waitCtx, "mosquitto not ready", func() bool { return canConnect(broker) }); err != nil {
		cleanup()
		return "", nil, err
	}
	return broker, cleanup, nil
}

func endpoint(ctx context.Context, cont tc.Container) (string, error) {
	host, err := cont.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port()), nil
}

func canConnect(broker string) bool {
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("probe"))
	token := cli.Connect()
	if !token.WaitTimeout(time.Second) || token.Error() != nil {
		return false
	}
	cli.Disconnect(100)
	return true
}
