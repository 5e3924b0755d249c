package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/yitech/harbinger/oracle"
	"github.com/yitech/harbinger/rpc"
)

func main() {
	addr := getEnv("SERVER_ADDR", "localhost:50051")
	interval := getEnvDuration("POLL_INTERVAL", 10*time.Second)
	nPoints := getEnvInt("N_POINTS", 48)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	defer conn.Close()

	client := rpc.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), interval)
	info, err := client.Info(ctx)
	cancel()
	if err != nil {
		log.Fatalf("info: %v", err)
	}

	ch := make(chan snapshot, 16)
	go poll(client, interval, ch)

	p := tea.NewProgram(
		newModel(info, nPoints, ch),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}

// poll requests a fresh signed batch every interval.
func poll(client *rpc.Client, interval time.Duration, ch chan<- snapshot) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		resp, err := client.Oracle(ctx)
		cancel()
		ch <- snapshot{resp: resp, err: err, at: time.Now()}
		time.Sleep(interval)
	}
}

type snapshot struct {
	resp *oracle.Response
	err  error
	at   time.Time
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
