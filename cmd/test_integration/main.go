package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURL = "http://localhost:8080"
)

const requirements = `Customers browse the catalog and place orders through the web shop.
The Order service stores orders in PostgreSQL and publishes an OrderPlaced event.
The Billing service consumes OrderPlaced, charges the card through the external
payment gateway and records invoices in its own database.`

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Health...")
	if _, ok := sendRequest("GET", "/health", nil, http.StatusOK); !ok {
		fmt.Println("FAILED: Health")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health")

	fmt.Println("2. Repairing a defective response...")
	repairPayload := map[string]string{
		"raw": "Here you go: {'actors': ['Customer'], \"events\": [],",
	}
	if _, ok := sendRequest("POST", "/repair", repairPayload, http.StatusOK); !ok {
		fmt.Println("FAILED: Repair")
		os.Exit(1)
	}
	fmt.Println("PASSED: Repair")

	fmt.Println("3. Ingesting requirements...")
	ingestPayload := map[string]interface{}{
		"text":        requirements,
		"chunk_words": 40,
	}
	body, ok := sendRequest("POST", "/ingest", ingestPayload, http.StatusOK)
	if !ok {
		fmt.Println("FAILED: Ingest")
		os.Exit(1)
	}

	var resp struct {
		RunID string `json:"run_id"`
		Graph struct {
			Actors        []json.RawMessage `json:"actors"`
			Microservices []json.RawMessage `json:"microservices"`
		} `json:"graph"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.RunID == "" {
		fmt.Printf("FAILED: Ingest response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("PASSED: Ingest (run %s, %d actors, %d services)\n", resp.RunID, len(resp.Graph.Actors), len(resp.Graph.Microservices))
}

func sendRequest(method, endpoint string, payload interface{}, want int) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		fmt.Printf("Unexpected status %d: %s\n", resp.StatusCode, string(respBody))
		return respBody, false
	}

	fmt.Printf("Response: %s\n", string(respBody))
	return respBody, true
}
