// Command smoke exercises a running ledger API end to end: login, append a
// session, read the weekly payroll and rebuild the summary. Intended for
// post-deploy checks against a disposable database.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type step struct {
	Name   string
	Method string
	Path   string
	Body   any
	Expect int
}

func main() {
	var (
		base     string
		email    string
		password string
		timeout  time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", "owner@example.com", "login email")
	flag.StringVar(&password, "password", "", "login password")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	token, err := login(client, base, email, password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	steps := []step{
		{Name: "health", Method: http.MethodGet, Path: "/health", Expect: http.StatusOK},
		{Name: "create session", Method: http.MethodPost, Path: "/api/v1/sessions", Expect: http.StatusCreated, Body: map[string]string{
			"student": "Smoke Test",
			"date":    today,
			"minutes": "60",
			"service": "K–12 Tutoring",
			"mode":    "Online",
			"tutor":   "Smoke Tutor",
		}},
		{Name: "unpaid view", Method: http.MethodGet, Path: "/api/v1/sessions/unpaid", Expect: http.StatusOK},
		{Name: "weekly payroll", Method: http.MethodGet, Path: "/api/v1/payroll/weekly?weekEnding=" + today, Expect: http.StatusOK},
		{Name: "summary rebuild", Method: http.MethodPost, Path: "/api/v1/summary/rebuild", Expect: http.StatusOK},
		{Name: "summary read", Method: http.MethodGet, Path: "/api/v1/summary", Expect: http.StatusOK},
	}

	failures := 0
	for _, s := range steps {
		status, err := run(client, base, token, s)
		switch {
		case err != nil:
			failures++
			fmt.Printf("FAIL %-16s %v\n", s.Name, err)
		case status != s.Expect:
			failures++
			fmt.Printf("FAIL %-16s got %d, want %d\n", s.Name, status, s.Expect)
		default:
			fmt.Printf("ok   %-16s %d\n", s.Name, status)
		}
	}

	if failures > 0 {
		fmt.Printf("%d of %d steps failed\n", failures, len(steps))
		os.Exit(1)
	}
	fmt.Printf("all %d steps passed\n", len(steps))
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base, token string, s step) (int, error) {
	var body io.Reader
	if s.Body != nil {
		payload, err := json.Marshal(s.Body)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(s.Method, base+s.Path, body)
	if err != nil {
		return 0, err
	}
	if s.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
