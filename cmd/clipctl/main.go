// Package main implements clipctl, a small command-line client for the
// clipforge server API. It covers the day-to-day operations: logging in,
// enqueuing video jobs, and inspecting task and run state.
//
// Usage:
//
//	clipctl [-server URL] [-token TOKEN] <command> [args]
//
// Commands:
//
//	login -password PASS          obtain an admin token
//	create [-topic T] [-batch T1,T2,...]  enqueue a video task
//	status TASK_ID                show one task
//	list                          show all tasks and queue depth
//	history [-limit N]            show recent runs
//	hash -password PASS           generate an admin password hash
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mwarren/clipforge/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "clipctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("clipctl", flag.ContinueOnError)
	server := global.String("server", "http://localhost:8080", "clipforge server base URL")
	token := global.String("token", os.Getenv("CLIPFORGE_TOKEN"), "admin bearer token")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return fmt.Errorf("a command is required")
	}

	client := &apiClient{
		baseURL: strings.TrimRight(*server, "/"),
		token:   *token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "login":
		return cmdLogin(client, commandArgs)
	case "create":
		return cmdCreate(client, commandArgs)
	case "status":
		return cmdStatus(client, commandArgs)
	case "list":
		return cmdList(client)
	case "history":
		return cmdHistory(client, commandArgs)
	case "hash":
		return cmdHash(commandArgs)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func cmdLogin(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("login requires -password")
	}

	var resp struct {
		Token            string `json:"token"`
		ExpiresInMinutes int    `json:"expires_in_minutes"`
	}
	err := client.do(http.MethodPost, "/api/auth/login",
		map[string]string{"password": *password}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Token)
	fmt.Fprintf(os.Stderr, "token expires in %d minutes; export CLIPFORGE_TOKEN to reuse it\n",
		resp.ExpiresInMinutes)
	return nil
}

func cmdCreate(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	topic := fs.String("topic", "", "topic for a single video (empty uses the configured default)")
	batch := fs.String("batch", "", "comma-separated topics for a batch job")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if client.token == "" {
		return fmt.Errorf("create requires a token (run clipctl login first)")
	}

	kind := "create_video"
	taskArgs := map[string]any{}
	if *batch != "" {
		kind = "create_video_batch"
		var topics []string
		for _, t := range strings.Split(*batch, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		taskArgs["topics"] = topics
	} else if *topic != "" {
		taskArgs["topic"] = *topic
	}

	var resp struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	err := client.do(http.MethodPost, "/api/tasks",
		map[string]any{"kind": kind, "args": taskArgs}, &resp)
	if err != nil {
		return err
	}

	fmt.Printf("task %s %s\n", resp.TaskID, resp.Status)
	return nil
}

func cmdStatus(client *apiClient, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clipctl status TASK_ID")
	}

	var snapshot map[string]any
	if err := client.do(http.MethodGet, "/api/tasks/"+args[0], nil, &snapshot); err != nil {
		return err
	}
	return printJSON(snapshot)
}

func cmdList(client *apiClient) error {
	var resp map[string]any
	if err := client.do(http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cmdHistory(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var resp map[string]any
	path := fmt.Sprintf("/api/history?limit=%d", *limit)
	if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

// cmdHash generates a bcrypt hash for the CLIPFORGE_AUTH_ADMIN_PASSWORD_HASH
// setting. It runs locally and never talks to the server.
func cmdHash(args []string) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	password := fs.String("password", "", "password to hash")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("hash requires -password")
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
