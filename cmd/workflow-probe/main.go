package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"

	"draco-chat-be/pkg/sse"
	"draco-chat-be/pkg/workflow"
)

// workflow-probe fires one query at a running backend and prints the frame
// stream as it arrives. Useful for eyeballing step transitions without a
// browser.

const defaultQuery = `def add(a, b):
    return a - b

# expected: add(2, 3) == 5`

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "backend base URL")
	queryFile := flag.String("file", "", "read the query from a file instead of -query")
	query := flag.String("query", defaultQuery, "code or question to debug")
	modelType := flag.String("model-type", "", "provider type override")
	modelName := flag.String("model-name", "", "model name override")
	flag.Parse()

	q := *query
	if *queryFile != "" {
		raw, err := os.ReadFile(*queryFile)
		if err != nil {
			log.Fatalf("read query file: %v", err)
		}
		q = string(raw)
	}

	body, _ := json.Marshal(map[string]string{
		"query":      q,
		"model_type": *modelType,
		"model_name": *modelName,
	})

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/api/debug/v1/workflow", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		log.Fatalf("unexpected status %d: %s", resp.StatusCode, payload)
	}

	if id := resp.Header.Get("X-Debug-Session-Id"); id != "" {
		color.Cyan("session: %s", id)
	}

	start := time.Now()
	if err := printStream(resp.Body, start); err != nil {
		log.Fatalf("stream failed: %v", err)
	}
	color.Cyan("stream finished in %s", time.Since(start).Round(time.Millisecond))
}

func printStream(r io.Reader, start time.Time) error {
	dec := sse.NewDecoder(r)

	stepColor := color.New(color.FgYellow)
	okColor := color.New(color.FgGreen)
	errColor := color.New(color.FgRed, color.Bold)
	progress := 0

	for {
		payload, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		frame, err := workflow.DecodeFrame(payload)
		if err != nil {
			errColor.Printf("[%6.1fs] bad frame: %v\n", time.Since(start).Seconds(), err)
			continue
		}

		elapsed := time.Since(start).Seconds()
		switch frame.Kind {
		case workflow.FrameStepStarted:
			stepColor.Printf("[%6.1fs] >> %s\n", elapsed, workflow.TitleOf(frame.Event))
		case workflow.FrameStepProgress:
			progress++
			if progress%20 == 0 {
				fmt.Printf("[%6.1fs]    %s: %d chars\n", elapsed, workflow.TitleOf(frame.Event), len(frame.Content))
			}
		case workflow.FrameStepCompleted:
			okColor.Printf("[%6.1fs] ok %s (%d chars)\n", elapsed, workflow.TitleOf(frame.Event), len(frame.Content))
		case workflow.FrameStepError:
			errColor.Printf("[%6.1fs] !! %s: %s\n", elapsed, workflow.TitleOf(frame.Event), frame.Content)
		case workflow.FrameError:
			errColor.Printf("[%6.1fs] run failed: %s\n", elapsed, frame.Content)
		case workflow.FrameDone:
			okColor.Printf("[%6.1fs] done\n", elapsed)
		}
	}
}
