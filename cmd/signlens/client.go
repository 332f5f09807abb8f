package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"signlens/internal/api"
	"signlens/internal/config"
)

const (
	spawnWaitTimeout  = 3 * time.Second
	spawnPollInterval = 100 * time.Millisecond
	pingTimeout       = 500 * time.Millisecond
)

// withClient runs fn against the local API, spawning a background `srv`
// process first when none is listening. A spawned server is killed when fn
// returns; a server that was already running is left alone.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client := api.NewClient(cfg.APIURL)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	err := client.Ping(ctx)
	cancel()
	if err == nil {
		return fn(client)
	}

	srv, err := spawnServer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = srv.Process.Kill()
		_ = srv.Wait()
	}()

	if err := awaitServer(client); err != nil {
		return err
	}
	return fn(client)
}

// spawnServer starts this binary's srv subcommand detached from the terminal.
// The child inherits the resolved config through env so both processes agree
// on paths even when flags set them.
func spawnServer(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	srv := exec.Command(exe, "srv")
	srv.Env = append(os.Environ(),
		config.EnvDB+"="+cfg.DBPath,
		config.EnvAPIURL+"="+cfg.APIURL,
		config.EnvOCRURL+"="+cfg.OCRURL,
	)
	srv.Stdout = io.Discard
	srv.Stderr = io.Discard

	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

// awaitServer polls the health endpoint until the spawned server answers.
// Connection-refused means the listener is not up yet; any other error means
// something else owns the port and is surfaced immediately.
func awaitServer(client *api.Client) error {
	deadline := time.Now().Add(spawnWaitTimeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		var opErr *net.OpError
		if !errors.As(err, &opErr) {
			return err
		}
		if time.Now().After(deadline) {
			return errors.New("server did not become ready in time")
		}
		time.Sleep(spawnPollInterval)
	}
}
