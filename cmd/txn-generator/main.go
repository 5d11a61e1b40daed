package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// PaymentRequest mirrors what the router expects; the metadata block is
// opaque to the router and travels through to the upstream unchanged.
type PaymentRequest struct {
	CorrelationID string          `json:"correlationId"`
	Amount        float64         `json:"amount"`
	Metadata      paymentMetadata `json:"metadata"`
}

type paymentMetadata struct {
	Payer string `json:"payer"`
	Email string `json:"email"`
}

func main() {
	targetURL := flag.String("target", "http://localhost:9999/payments", "Target URL for sending payments")
	rps := flag.Int("rps", 50, "Requests per second")
	authHeader := flag.String("auth-header", "", "Auth header name, if the router requires one")
	authValue := flag.String("auth-value", "", "Auth header value")
	dupRate := flag.Float64("dup-rate", 0.05, "Fraction of requests reusing the previous correlation id")
	flag.Parse()

	log.Printf("Starting generator: target=%s, rps=%d\n", *targetURL, *rps)

	ticker := time.NewTicker(time.Second / time.Duration(*rps))
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lastID := uuid.New().String()
	for {
		select {
		case <-ticker.C:
			id := uuid.New().String()
			// Occasionally replay the previous id to exercise the
			// idempotency path.
			if rand.Float64() < *dupRate {
				id = lastID
			}
			lastID = id
			go sendRequest(*targetURL, id, *authHeader, *authValue)
		case <-ctx.Done():
			log.Println("Shutting down generator...")
			return
		}
	}
}

func sendRequest(url, correlationID, authHeader, authValue string) {
	reqData := PaymentRequest{
		CorrelationID: correlationID,
		Amount:        float64(rand.Intn(100000)) / 100.0,
		Metadata: paymentMetadata{
			Payer: faker.Name(),
			Email: faker.Email(),
		},
	}

	body, err := json.Marshal(reqData)
	if err != nil {
		log.Printf("ERROR: failed to marshal request: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		log.Printf("ERROR: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set(authHeader, authValue)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("ERROR: failed to send request: %v", err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body : %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: received non-200 status code: %d", resp.StatusCode)
	}
}
