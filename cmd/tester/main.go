package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"visionbridge/internal/client"

	"github.com/chzyer/readline"
)

const usage = `plain text       ask the language model
:detect <path> [threshold]   run detection on an image file
:quit            exit`

func main() {
	err := mainImpl()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	server := flag.String("server", "http://localhost:8000", "vision bridge base URL")
	timeout := flag.Duration("timeout", 3*time.Minute, "request timeout")
	flag.Parse()

	bridge := client.New(*server, *timeout)

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Println(usage)
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF
			break
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == ":quit":
			return nil
		case strings.HasPrefix(line, ":detect"):
			if err := detect(bridge, strings.Fields(line)[1:]); err != nil {
				fmt.Println(err)
			}
		case strings.HasPrefix(line, ":"):
			fmt.Println(usage)
		default:
			answer, err := bridge.Ask(context.Background(), line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println(answer)
		}
	}
	return nil
}

func detect(bridge *client.Client, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: :detect <path> [threshold]")
	}
	threshold := -1.0
	if len(args) == 2 {
		parsed, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q", args[1])
		}
		threshold = parsed
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := bridge.Detect(context.Background(), data, contentType, threshold)
	if err != nil {
		return err
	}

	fmt.Printf("%d object(s) [%s]\n", resp.TotalObjects, resp.RequestID)
	for _, d := range resp.Detections {
		fmt.Printf("  %-16s %.2f  (%.0f,%.0f)-(%.0f,%.0f)\n",
			d.Class, d.Confidence, d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2)
	}

	annotated, err := base64.StdEncoding.DecodeString(resp.AnnotatedImage)
	if err != nil {
		return fmt.Errorf("failed to decode annotated image: %w", err)
	}
	out := annotatedPath(path, resp.ImageFormat)
	if err := os.WriteFile(out, annotated, 0644); err != nil {
		return err
	}
	fmt.Println("annotated image written to", out)
	return nil
}

// annotatedPath turns photos/cat.png into photos/cat.annotated.png.
func annotatedPath(path, format string) string {
	ext := filepath.Ext(path)
	if format != "" {
		ext = "." + format
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".annotated" + ext
}
