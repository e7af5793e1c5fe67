// Package main provides the terminal client for the video join server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/maauso/videojoin/internal/form"
	"github.com/maauso/videojoin/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	defaultURL := os.Getenv("VIDEOJOIN_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	serverURL := flag.String("url", defaultURL, "base URL of the video join server")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-url URL] [-log FILE] video.mp4 [video.mp4 ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	files, err := selection(flag.Args())
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "videojoin")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	model, err := tui.NewModel(context.Background(), form.NewHTTPSubmitter(*serverURL), *serverURL, files, logger)
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("run program: %w", err)
	}

	if m, ok := final.(tui.Model); ok {
		if result, ok := m.Form.Result(); ok {
			fmt.Println(result.SecureURL)
		}
	}
	return nil
}

// selection turns the positional arguments into the ordered file list.
func selection(args []string) ([]form.File, error) {
	files := make([]form.File, 0, len(args))
	for _, p := range args {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, form.File{Name: filepath.Base(p), Path: p})
	}
	return files, nil
}
