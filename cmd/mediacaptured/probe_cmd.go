// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ManuGH/mediacapture/internal/config"
	"github.com/ManuGH/mediacapture/internal/infra/ffmpeg"
	"github.com/ManuGH/mediacapture/internal/infra/fsresolver"
	"github.com/ManuGH/mediacapture/internal/infra/imageprobe"
	xglog "github.com/ManuGH/mediacapture/internal/log"
	"github.com/ManuGH/mediacapture/internal/media"
)

// runProbeCLI prints the FormatDescriptor of a file as JSON:
//
//	mediacaptured probe [--ffprobe bin] <path> [mime]
func runProbeCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ffprobe := fs.String("ffprobe", config.ResolveFFprobeBin(os.Getenv(config.EnvPrefix+"FFPROBE_BIN"), os.Getenv(config.EnvPrefix+"FFMPEG_BIN")), "ffprobe binary")
	timeout := fs.Duration("timeout", 10*time.Second, "probe timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(stderr, "usage: mediacaptured probe [--ffprobe bin] <path> [mime]")
		return 2
	}

	xglog.Configure(xglog.Config{Level: "error", Output: stderr, Service: "mediacaptured"})

	builder := media.NewBuilder(fsresolver.New(nil), imageprobe.Prober{}, ffmpeg.NewProber(*ffprobe, *timeout))
	fd, err := builder.FormatData(context.Background(), fs.Arg(0), fs.Arg(1))
	if err != nil {
		fmt.Fprintf(stderr, "probe failed: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fd); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}
